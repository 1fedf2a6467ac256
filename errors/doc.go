/*
Package errors provides semantic error types for entitykit.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Storage errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrNoIndexMap      = errors.New("no index map found for entity type")
	)

Type registry and factory errors:

	ErrRegistration          // bad constructor, or an unrelated type competing for a name
	ErrUnregisteredType      // no active type for the requested name; register and retry
	ErrConstructionInvariant // a reference-only instance came out of its constructor dirty

Usage:

	obj, err := factory.CreateReference("Person", "abc123")
	if err != nil {
	    if errors.IsUnregisteredType(err) {
	        // register the type, then retry
	    }
	    if errors.IsConstructionInvariant(err) {
	        // the Person constructor sets fields; fix the type
	    }
	    return nil, err
	}

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
