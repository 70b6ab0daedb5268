package graph

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants of a document: every node carries an id and a
// type, node ids are unique and every edge endpoint references an existing node.
// All violations are reported, joined into a single error.
func Validate(doc Document) error {
	var errs []error

	ids := make(map[string]struct{}, len(doc.Nodes))
	reported := make(map[string]struct{})

	for i, node := range doc.Nodes {
		if err := validate.Struct(node); err != nil {
			errs = append(errs, fmt.Errorf("%w: node at index %d: %w", ErrInvalidNode, i, err))

			continue
		}

		if _, seen := ids[node.ID]; seen {
			if _, done := reported[node.ID]; !done {
				errs = append(errs, &DuplicateIDError{ID: node.ID})
				reported[node.ID] = struct{}{}
			}

			continue
		}

		ids[node.ID] = struct{}{}
	}

	for _, edge := range doc.Edges {
		if _, ok := ids[edge.Source]; !ok {
			errs = append(errs, &DanglingEdgeError{Edge: edge, Missing: edge.Source})

			continue
		}

		if _, ok := ids[edge.Target]; !ok {
			errs = append(errs, &DanglingEdgeError{Edge: edge, Missing: edge.Target})
		}
	}

	return errors.Join(errs...)
}
