package cc

import "encoding/json"

func marshalCommand(cmd Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func newCommand(op commandKind, data any) (Command, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Command{}, err
	}
	return Command{Op: op, Data: raw}, nil
}
