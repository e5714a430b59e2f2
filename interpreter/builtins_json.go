package interpreter

import (
	"encoding/json"
	"io"
	"strings"
)

func builtinEncodeJSON(_ *Evaluator, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Message: "encodeJson expects 1 argument"}
	}
	value, err := encodeJSONValue(args[0])
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, &RuntimeError{Message: "encodeJson error: " + err.Error()}
	}
	return &String{Value: string(data)}, nil
}

func builtinDecodeJSON(_ *Evaluator, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &RuntimeError{Message: "decodeJson expects 1 argument"}
	}
	str, ok := args[0].(*String)
	if !ok {
		return nil, &RuntimeError{Message: "decodeJson expects string"}
	}
	decoder := json.NewDecoder(strings.NewReader(str.Value))
	decoder.UseNumber()
	var data interface{}
	if err := decoder.Decode(&data); err != nil {
		return nil, recoverableError("decodeJson", "decodeJson error: "+err.Error())
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, recoverableError("decodeJson", "decodeJson expects a single JSON value")
	}
	return decodeJSONValue(data)
}

