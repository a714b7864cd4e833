package ld

// Reserved predicates the index derives Resource.Type and Resource.Title from.
const (
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	DCTitle = "http://purl.org/dc/terms/title"
)

// FETCH selectors accepted as Arguments[0]. Anything else is treated as a resource id.
const (
	SelectAll   = "all"
	SelectTypes = "types"
	SelectType  = "type"
)

// Response messages. Clients match on these strings, so they are part of the protocol.
const (
	MsgCompleted      = "completed"
	MsgNotFound       = "Unable to find node!"
	MsgUnsupported    = "unsupported command type"
	MsgMissingType    = "missing type argument"
	MsgSuperseded     = "superseded by newer INIT"
	MsgIngestTimedOut = "ingestion timed out"
)
