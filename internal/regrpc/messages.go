package regrpc

// RegItemProto is the wire form of a regtypes.RegItem, matching the
// reg_item message in proto/registry.proto.
type RegItemProto struct {
	Name     string
	Location string
}

// FilterProto is the wire form of a regtypes.Filter.
type FilterProto struct {
	Definition string
}

// ComMsg is the request envelope for Register, Unregister, and Lookup.
// Register/Unregister populate RegItem; Lookup populates Fltr.
type ComMsg struct {
	RegItem []RegItemProto
	Fltr    FilterProto
}

// Result is the response envelope for every RPC. Lookup populates RegItem
// with the match set and Code with its length; Register/Unregister leave
// RegItem empty and use Code/ErrorMessage only.
type Result struct {
	Code         int32
	ErrorMessage string
	RegItem      []RegItemProto
}
