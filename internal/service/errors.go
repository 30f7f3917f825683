package service

import (
	"errors"
	"fmt"
)

var ErrTriggerRequired = errors.New("trigger is required")

// WarehouseError wraps a failed warehouse read. It is never retried here.
type WarehouseError struct {
	Err error
}

func (e *WarehouseError) Error() string {
	return fmt.Sprintf("warehouse: %v", e.Err)
}

func (e *WarehouseError) Unwrap() error { return e.Err }
