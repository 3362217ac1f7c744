package provider

import "fmt"

// RPCError is an error object returned by the node in a JSON-RPC response.
// The node was reachable and understood the request.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
