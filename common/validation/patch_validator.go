package validation

import (
	"fmt"
	"strings"
)

// RatioFields are the settings paths a patch may touch
var RatioFields = map[string]bool{
	"guestsPerServer":  true,
	"tablesPerHost":    true,
	"ordersPerKitchen": true,
	"minHosts":         true,
	"minServers":       true,
	"minKitchen":       true,
}

// PatchValidator validates RFC 6902 operations against service ratio settings
type PatchValidator struct{}

// NewPatchValidator creates a new patch validator
func NewPatchValidator() *PatchValidator {
	return &PatchValidator{}
}

// ValidateOperations validates all patch operations
func (v *PatchValidator) ValidateOperations(operations []map[string]interface{}) error {
	if len(operations) == 0 {
		return fmt.Errorf("%w: patch has no operations", ErrInvalidPatch)
	}
	for i, op := range operations {
		if err := v.validateOperation(op, i); err != nil {
			return err
		}
	}
	return nil
}

// validateOperation validates a single operation
func (v *PatchValidator) validateOperation(op map[string]interface{}, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return fmt.Errorf("%w: operation %d: missing or invalid 'op' field", ErrInvalidPatch, index)
	}

	path, ok := op["path"].(string)
	if !ok {
		return fmt.Errorf("%w: operation %d: missing or invalid 'path' field", ErrInvalidPatch, index)
	}

	field := strings.TrimPrefix(path, "/")
	if !RatioFields[field] {
		return fmt.Errorf("%w: operation %d: unknown settings path %s", ErrInvalidPatch, index, path)
	}

	switch opType {
	case "add", "replace", "test":
		value, ok := op["value"]
		if !ok {
			return fmt.Errorf("%w: operation %d: 'value' required for %s operation", ErrInvalidPatch, index, opType)
		}
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%w: operation %d: %s must be a number", ErrInvalidPatch, index, field)
		}
	default:
		// ratios cannot be removed, moved or copied
		return fmt.Errorf("%w: operation %d: unsupported operation type: %s", ErrInvalidPatch, index, opType)
	}

	return nil
}
