package model

import (
	"time"

	"github.com/google/uuid"
)

type Operation string // @Name Operation

const (
	OperationToggleCalculated Operation = "TOGGLE_CALCULATED"
	OperationDisposition      Operation = "OUT_OF_CONTROL_DISPOSITION"
	OperationUpdateTarget     Operation = "UPDATE_TARGET_SD"
	OperationPrint            Operation = "PRINT"
)

type Outcome string // @Name Outcome

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeDenied    Outcome = "DENIED"
)

type OperationLogEntity struct {
	ID        uuid.UUID
	DeviceID  uuid.UUID
	CreatedAt time.Time
	Operation Operation
	Outcome   Outcome
	UserName  string
	AssayName string
	TargetID  string
	Message   string
}

type OperationLogDTO struct {
	ID        uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`             // The log entry ID
	DeviceID  uuid.UUID `json:"deviceId" swaggertype:"string" format:"uuid"`       // The device the operation ran against
	CreatedAt time.Time `json:"createdAt" swaggertype:"string" format:"date-time"` // The log timestamp
	Operation Operation `json:"operation"`                                         // The performed operation
	Outcome   Outcome   `json:"outcome"`                                           // Whether the operation went through
	UserName  string    `json:"userName"`                                          // The user that triggered it
	AssayName string    `json:"assayName"`                                         // The assay of the chart
	TargetID  string    `json:"targetId"`                                          // The QC result or document ID
	Message   string    `json:"message"`                                           // Free text details
} // @Name OperationLogDTO
