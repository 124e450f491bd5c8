package service

import (
	"github.com/google/uuid"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
)

// EnrollmentIDGenerator implements enrollment.IDGenerator.
type EnrollmentIDGenerator struct{}

func NewEnrollmentIDGenerator() *EnrollmentIDGenerator {
	return &EnrollmentIDGenerator{}
}

func (g *EnrollmentIDGenerator) NextID() string {
	return enrollment.IDPrefix + uuid.New().String()
}
