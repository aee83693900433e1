package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateSearchConfig checks search bounds. It returns a *ValidationError
// if any rules fail, or nil if the config is valid.
func ValidateSearchConfig(c SearchConfig) error {
	var ve ValidationError

	if c.MaxDepth < 1 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "max_depth",
			Message: fmt.Sprintf("must be at least 1, got %d", c.MaxDepth),
		})
	}
	if c.MaxResults < 1 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "max_results",
			Message: fmt.Sprintf("must be at least 1, got %d", c.MaxResults),
		})
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "min_confidence",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", c.MinConfidence),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateNode checks a Node for constraint violations.
func ValidateNode(n *Node) error {
	var ve ValidationError

	if strings.TrimSpace(n.OwnerID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "owner_id", Message: "is required"})
	}
	if strings.TrimSpace(n.DisplayName) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "display_name", Message: "is required"})
	}
	if !n.Kind.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "kind",
			Message: fmt.Sprintf("invalid value %q", n.Kind),
		})
	}
	if n.Kind == NodeUser && n.TargetUserID == "" {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "target_user_id",
			Message: "is required when kind is user",
		})
	}
	if n.Layer < 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "layer",
			Message: fmt.Sprintf("must be non-negative, got %d", n.Layer),
		})
	}
	if n.Estimated != nil && (n.Estimated.Confidence < 0 || n.Estimated.Confidence > 100) {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "estimated.confidence",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", n.Estimated.Confidence),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateConnection checks a Connection for constraint violations.
func ValidateConnection(c *Connection) error {
	var ve ValidationError

	if strings.TrimSpace(c.OwnerID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "owner_id", Message: "is required"})
	}
	if strings.TrimSpace(c.FromNodeID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "from_node_id", Message: "is required"})
	}
	if strings.TrimSpace(c.ToNodeID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "to_node_id", Message: "is required"})
	}
	if c.FromNodeID != "" && c.FromNodeID == c.ToNodeID {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "to_node_id",
			Message: "must differ from from_node_id",
		})
	}
	if c.Strength < 0 || c.Strength > 100 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "strength",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", c.Strength),
		})
	}
	if !c.Type.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "type",
			Message: fmt.Sprintf("invalid value %q", c.Type),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
