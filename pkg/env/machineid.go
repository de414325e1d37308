package env

import (
	"fmt"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID keys the protected machine id.
const AppID = "ahrs"

// ClientID identifies this node on a broker: a machine id hashed with the
// application id, or the node id when the machine id is unavailable.
func ClientID(nodeID uint8) string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return fmt.Sprintf("%s-node%d", AppID, nodeID)
	}
	return fmt.Sprintf("%s-%.12s-%d", AppID, id, nodeID)
}
