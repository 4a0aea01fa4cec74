package forge

import "fmt"

const outputTailLines = 20

// ScriptError reports a deploy script that exited unsuccessfully.
type ScriptError struct {
	Script string
	Err    error
	Output string
}

func (e *ScriptError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("deploy script '%s' failed: %v", e.Script, e.Err)
	}
	return fmt.Sprintf("deploy script '%s' failed: %v\n%s", e.Script, e.Err, e.Output)
}

func (e *ScriptError) Unwrap() error { return e.Err }
