package repositories

import "fmt"

// ListPolicy decides what a listing returns when it has no rows.
type ListPolicy string

const (
	// ListEmpty returns an empty list.
	ListEmpty ListPolicy = "empty"
	// ListNotFound fails with ErrEmptyResult.
	ListNotFound ListPolicy = "not_found"
)

// ParseListPolicy validates a configured policy name.
func ParseListPolicy(s string) (ListPolicy, error) {
	switch ListPolicy(s) {
	case ListEmpty, ListNotFound:
		return ListPolicy(s), nil
	case "":
		return ListEmpty, nil
	}
	return "", fmt.Errorf("unknown list policy %q", s)
}

// Check applies the policy to a listing of n rows.
func (p ListPolicy) Check(n int) error {
	if n == 0 && p == ListNotFound {
		return ErrEmptyResult
	}
	return nil
}
