package daemon

// Version is the API version of the daemon. It should be bumped any time the
// API changes.
const Version = 1

// RPC method names. Most correspond to the methods of hal.Store.
const (
	methodVersion = "store/version"
	methodLoad    = "store/load"
	methodSave    = "store/save"
	methodDelete  = "store/delete"
	methodKeys    = "store/keys"
	methodClear   = "store/clear"
)

type keyArgs struct {
	Key string `json:"key"`
}

type saveArgs struct {
	Key  string `json:"key"`
	Data []byte `json:"data"`
}

type prefixArgs struct {
	Prefix string `json:"prefix"`
}

type versionReply struct {
	Version int `json:"version"`
}

type loadReply struct {
	// Data is nil when the key is absent, matching the store contract.
	Data []byte `json:"data"`
}

type keysReply struct {
	Keys []string `json:"keys"`
}
