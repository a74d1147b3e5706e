package types

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const JSONRPCVersion = "2.0"

// JSONRPCRequest json rpc request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (m *JSONRPCRequest) Validate() error {
	if m.JSONRPC != "" && m.JSONRPC != JSONRPCVersion {
		return errors.Errorf("unsupported jsonrpc version %q", m.JSONRPC)
	}

	return nil
}

// JSONRPCError json rpc error
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCResponse json rpc response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// MarshalJSON emits either result or error, never both.
func (m JSONRPCResponse) MarshalJSON() ([]byte, error) {
	id := m.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}

	if m.Error != nil {
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Error   *JSONRPCError   `json:"error"`
		}{m.JSONRPC, id, m.Error})
	}

	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  any             `json:"result"`
	}{m.JSONRPC, id, m.Result})
}
