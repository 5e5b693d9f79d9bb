package handaas

import (
	"encoding/json"
	"errors"
)

// Kind classifies how a call resolved.
type Kind string

const (
	KindData        Kind = "data"         // remote returned a non-null data payload
	KindMessage     Kind = "message"      // remote returned msgCN instead of data
	KindEmpty       Kind = "empty"        // remote returned neither
	KindFailed      Kind = "failed"       // transport or decode failure
	KindConfigError Kind = "config_error" // missing credential or product id
)

// FailureMessage is the value returned for any transport or decode failure.
const FailureMessage = "查询失败"

// Messages reported for missing configuration.
const (
	msgMissingIntegratorID = "对接器ID不能为空"
	msgMissingSecretID     = "密钥ID不能为空"
	msgMissingSecretKey    = "密钥不能为空"
	msgMissingProductID    = "产品ID不能为空"
)

var (
	ErrMissingIntegratorID = errors.New("handaas: integrator id is empty")
	ErrMissingSecretID     = errors.New("handaas: secret id is empty")
	ErrMissingSecretKey    = errors.New("handaas: secret key is empty")
	ErrMissingProductID    = errors.New("handaas: product id is empty")
)

var (
	nullValue    = json.RawMessage(`null`)
	failureValue = mustMarshal(FailureMessage)
)

// Result is the normalized outcome of one remote call.
//
// Value is always a JSON-compatible value and is what tools hand back to the
// calling agent. Err holds the diagnostic cause for failed and config-error
// results; it is meant for logs and is never shown to the agent.
type Result struct {
	Kind  Kind
	Value json.RawMessage
	Err   error
}

// Decode unmarshals Value into v.
func (r Result) Decode(v any) error {
	return json.Unmarshal(r.valueOrNull(), v)
}

// JSON returns Value, or null when Value is unset.
func (r Result) JSON() json.RawMessage { return r.valueOrNull() }

func (r Result) valueOrNull() json.RawMessage {
	if len(r.Value) == 0 {
		return nullValue
	}
	return r.Value
}

func failed(err error) Result {
	return Result{Kind: KindFailed, Value: failureValue, Err: err}
}

func configError(msg string, err error) Result {
	return Result{Kind: KindConfigError, Value: mustMarshal(map[string]string{"error": msg}), Err: err}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
