package canaero

// Identifier ranges.
const (
	EEDFirst uint32 = 0
	EEDLast  uint32 = 127

	NSHFirst uint32 = 128
	NSHLast  uint32 = 199

	NODFirst uint32 = 300
	NODLast  uint32 = 1799

	NSLFirst uint32 = 2000
	NSLLast  uint32 = 2031

	// MaxChannel is the last node service channel.
	MaxChannel uint8 = 35
	// MaxLowPriorityChannel is the last channel with a low priority identifier pair.
	MaxLowPriorityChannel uint8 = 15
)

// HighPriorityRequestID is the high priority service request identifier of a channel.
func HighPriorityRequestID(channel uint8) uint32 {
	return NSHFirst + 2*uint32(channel)
}

// LowPriorityRequestID is the low priority service request identifier of a channel.
func LowPriorityRequestID(channel uint8) uint32 {
	return NSLFirst + 2*uint32(channel)
}

// ResponseID is the response identifier paired with a request identifier.
func ResponseID(requestID uint32) uint32 {
	return requestID + 1
}

// IsEmergency reports whether the identifier carries emergency event data.
func IsEmergency(id uint32) bool {
	return id <= EEDLast
}

// ServiceChannel decodes a service request identifier.
func ServiceChannel(id uint32) (channel uint8, lowPriority, ok bool) {
	switch {
	case id >= NSHFirst && id <= NSHLast && (id-NSHFirst)%2 == 0:
		return uint8((id - NSHFirst) / 2), false, true
	case id >= NSLFirst && id <= NSLLast && (id-NSLFirst)%2 == 0:
		return uint8((id - NSLFirst) / 2), true, true
	}
	return 0, false, false
}
