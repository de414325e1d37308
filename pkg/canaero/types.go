// Package canaero implements the CANaerospace protocol stack used by the node.
package canaero

import "fmt"

// DataType is the CANaerospace data type code carried in byte 1.
type DataType uint8

// CANaerospace data types.
const (
	NODATA DataType = iota
	ERROR
	FLOAT
	LONG
	ULONG
	BLONG
	SHORT
	USHORT
	BSHORT
	CHAR
	UCHAR
	BCHAR
	SHORT2
	USHORT2
	BSHORT2
	CHAR4
	UCHAR4
	BCHAR4
	CHAR2
	UCHAR2
	BCHAR2
	MEMID
	CHKSUM
	ACHAR
	ACHAR2
	ACHAR4
	CHAR3
	UCHAR3
	BCHAR3
	ACHAR3
	DOUBLEH
	DOUBLEL
)

var dataTypeNames = [...]string{
	"NODATA", "ERROR", "FLOAT", "LONG", "ULONG", "BLONG", "SHORT", "USHORT",
	"BSHORT", "CHAR", "UCHAR", "BCHAR", "SHORT2", "USHORT2", "BSHORT2", "CHAR4",
	"UCHAR4", "BCHAR4", "CHAR2", "UCHAR2", "BCHAR2", "MEMID", "CHKSUM", "ACHAR",
	"ACHAR2", "ACHAR4", "CHAR3", "UCHAR3", "BCHAR3", "ACHAR3", "DOUBLEH", "DOUBLEL",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// Size is the number of payload bytes the type occupies.
func (t DataType) Size() int {
	switch t {
	case NODATA:
		return 0
	case CHAR, UCHAR, BCHAR, ACHAR:
		return 1
	case SHORT, USHORT, BSHORT, CHAR2, UCHAR2, BCHAR2, ACHAR2:
		return 2
	case CHAR3, UCHAR3, BCHAR3, ACHAR3:
		return 3
	default:
		return 4
	}
}

// ServiceCode indexes the node service dispatch table.
type ServiceCode uint8

// Node services.
const (
	IDS ServiceCode = iota // identification
	NSS                    // node synchronisation
	DDS                    // data download
	DUS                    // data upload
	SCS                    // simulation control
	TIS                    // transmission interval
	FPS                    // flash programming
	STS                    // state transmission
	FSS                    // filter setting
	TCS                    // test control
	BSS                    // baudrate setting
	NIS                    // node-ID setting
	MIS                    // module information
	MCS                    // module configuration
	CSS                    // CAN-ID setting
	DSS                    // CAN-ID distribution setting

	NumServices = 16
)

var serviceNames = [NumServices]string{
	"IDS", "NSS", "DDS", "DUS", "SCS", "TIS", "FPS", "STS",
	"FSS", "TCS", "BSS", "NIS", "MIS", "MCS", "CSS", "DSS",
}

func (c ServiceCode) String() string {
	if c < NumServices {
		return serviceNames[c]
	}
	return fmt.Sprintf("Service(%d)", uint8(c))
}

// InvalidCode is the message code of a reply rejecting a request.
const InvalidCode uint8 = 255
