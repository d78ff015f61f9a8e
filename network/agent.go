package network

// Agent serves one connection. Run returns when the connection should be dropped,
// OnClose runs after the connection is released.
type Agent interface {
	Run()
	OnClose()
}
