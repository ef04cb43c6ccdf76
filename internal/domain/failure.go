package domain

// Failure records one key that could not be fetched or transformed.
// Failures are collected, never propagated to sibling tasks.
type Failure struct {
	Key    string
	Domain string
	Err    error
}

func (f Failure) Error() string {
	if f.Err == nil {
		return f.Domain + " " + f.Key
	}
	return f.Domain + " " + f.Key + ": " + f.Err.Error()
}
