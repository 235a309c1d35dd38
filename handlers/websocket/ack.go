package websocket

import (
	"encoding/json"
	"fmt"
	"reflect"
)

type ackInvoker func(err error, payload map[string]any)

// splitAck separates a trailing acknowledgement callback from the event arguments.
func splitAck(datas []any) (ackInvoker, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	fn := reflect.ValueOf(datas[len(datas)-1])
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, datas
	}

	typ := fn.Type()
	return func(err error, payload map[string]any) {
		fn.Call(ackArgs(typ, err, payload))
	}, datas[:len(datas)-1]
}

// ackArgs fits (err, payload) to whatever signature the transport handed us.
// A single-parameter callback gets the error when there is one, else the payload.
func ackArgs(typ reflect.Type, err error, payload map[string]any) []reflect.Value {
	args := make([]reflect.Value, typ.NumIn())
	for i := range args {
		var value any
		switch {
		case len(args) == 1 && err != nil:
			value = err
		case len(args) == 1, i == 1:
			value = payload
		case i == 0 && err != nil:
			value = err
		}
		args[i] = coerce(value, typ.In(i))
	}
	return args
}

func coerce(value any, target reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(target)
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(target):
		return rv
	case rv.Type().ConvertibleTo(target):
		return rv.Convert(target)
	case target.Kind() == reflect.Interface && target.NumMethod() == 0:
		return rv
	case target.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(target)
	case target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Interface:
		list := reflect.MakeSlice(target, 1, 1)
		list.Index(0).Set(rv)
		return list
	}
	return reflect.Zero(target)
}

func ackPayload(result map[string]any, err error) map[string]any {
	payload := map[string]any{"status": "ok"}
	for k, v := range result {
		payload[k] = v
	}
	if err != nil {
		payload["status"] = "error"
		payload["error"] = err.Error()
	}
	return payload
}

// decodePayload maps the first event argument onto v. Arguments arrive either
// as decoded JSON objects or as raw JSON strings.
func decodePayload(args []any, v any) error {
	if len(args) == 0 || args[0] == nil {
		return nil
	}
	var raw []byte
	switch arg := args[0].(type) {
	case string:
		raw = []byte(arg)
	case []byte:
		raw = arg
	default:
		encoded, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		raw = encoded
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
