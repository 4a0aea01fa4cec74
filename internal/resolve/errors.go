package resolve

import "fmt"

// CycleError reports substitution that did not converge, typically because of
// self-referencing placeholders such as a: "${b}", b: "${a}".
type CycleError struct {
	Key    string
	Passes int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("variable substitution did not converge after %d passes, '%s' keeps changing (reference cycle?)", e.Passes, e.Key)
}
