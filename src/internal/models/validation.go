package models

import "strings"

// ValidationError carries every field problem found in a request. Its message
// joins them with "; " and errors.Is matches each underlying sentinel.
type ValidationError struct {
	problems []string
	causes   []error
}

func (e *ValidationError) add(cause error, problem string) {
	e.problems = append(e.problems, problem)
	for _, existing := range e.causes {
		if existing == cause {
			return
		}
	}
	e.causes = append(e.causes, cause)
}

func (e *ValidationError) orNil() error {
	if len(e.problems) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	return strings.Join(e.problems, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return e.causes
}
