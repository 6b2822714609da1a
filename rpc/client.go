package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const callTimeout = 20 * time.Second

// CallRPC posts method to the status endpoint of a serve node and returns
// the data field of the reply as raw JSON.
func CallRPC(node, method string, params []any) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"method": method,
		"params": params,
	})
	if err != nil {
		return nil, fmt.Errorf("rpc %s params %w", method, err)
	}
	req, err := http.NewRequest("POST", node, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc %s node %w", method, err)
	}
	req.Close = true
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: callTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc %s %w", method, err)
	}
	defer resp.Body.Close()

	var result struct {
		Data  json.RawMessage `json:"data"`
		Error any             `json:"error"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	err = dec.Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("rpc %s %s reply %w", method, resp.Status, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("rpc %s %s %v", node, method, result.Error)
	}
	if len(result.Data) == 0 || string(result.Data) == "null" {
		return nil, nil
	}
	return result.Data, nil
}
