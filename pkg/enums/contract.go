package enums

import "fmt"

// ContractStatus maps to the contract_status enum in Postgres.
type ContractStatus string

const (
	ContractDraft            ContractStatus = "draft"
	ContractPendingSignature ContractStatus = "pending_signature"
	ContractSigned           ContractStatus = "signed"
	ContractCancelled        ContractStatus = "cancelled"
	ContractCompleted        ContractStatus = "completed"
)

var validContractStatuss = []ContractStatus{
	ContractDraft,
	ContractPendingSignature,
	ContractSigned,
	ContractCancelled,
	ContractCompleted,
}

// String implements fmt.Stringer.
func (c ContractStatus) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical contract_status enum.
func (c ContractStatus) IsValid() bool {
	for _, candidate := range validContractStatuss {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContractStatus converts raw input into ContractStatus.
func ParseContractStatus(value string) (ContractStatus, error) {
	for _, candidate := range validContractStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract status %q", value)
}
