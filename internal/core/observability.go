package core

import (
	"context"
	"time"

	"hydrocore/pkg/domain"
)

// Logger is the structured logger used by the service. Arguments are
// alternating key/value pairs, as with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus is the outcome recorded for an audited operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for audit sinks.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes operation outcomes and latency.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type auditMetadata struct {
	entity domain.EntityType
	action domain.Action
}

var auditOperations = map[string]auditMetadata{
	"create_node":                     {domain.EntityNode, domain.ActionCreate},
	"update_node":                     {domain.EntityNode, domain.ActionUpdate},
	"delete_node":                     {domain.EntityNode, domain.ActionDelete},
	"create_branch":                   {domain.EntityBranch, domain.ActionCreate},
	"update_branch":                   {domain.EntityBranch, domain.ActionUpdate},
	"delete_branch":                   {domain.EntityBranch, domain.ActionDelete},
	"split_branch":                    {domain.EntityBranch, domain.ActionCreate},
	"connect_compartments":            {domain.EntityBranch, domain.ActionCreate},
	"create_cross_section_definition": {domain.EntityCrossSectionDefinition, domain.ActionCreate},
	"update_cross_section_definition": {domain.EntityCrossSectionDefinition, domain.ActionUpdate},
	"delete_cross_section_definition": {domain.EntityCrossSectionDefinition, domain.ActionDelete},
	"create_cross_section":            {domain.EntityCrossSection, domain.ActionCreate},
	"update_cross_section":            {domain.EntityCrossSection, domain.ActionUpdate},
	"delete_cross_section":            {domain.EntityCrossSection, domain.ActionDelete},
	"move_composite":                  {domain.EntityCompositeStructure, domain.ActionUpdate},
	"delete_composite":                {domain.EntityCompositeStructure, domain.ActionDelete},
	"add_structure":                   {domain.EntityStructure, domain.ActionCreate},
	"update_structure":                {domain.EntityStructure, domain.ActionUpdate},
	"move_structure":                  {domain.EntityStructure, domain.ActionUpdate},
	"remove_structure":                {domain.EntityStructure, domain.ActionDelete},
	"create_manhole":                  {domain.EntityManhole, domain.ActionCreate},
	"update_manhole":                  {domain.EntityManhole, domain.ActionUpdate},
	"delete_manhole":                  {domain.EntityManhole, domain.ActionDelete},
	"create_boundary":                 {domain.EntityBoundary, domain.ActionCreate},
	"update_boundary":                 {domain.EntityBoundary, domain.ActionUpdate},
	"delete_boundary":                 {domain.EntityBoundary, domain.ActionDelete},
	"create_lateral":                  {domain.EntityLateralSource, domain.ActionCreate},
	"update_lateral":                  {domain.EntityLateralSource, domain.ActionUpdate},
	"delete_lateral":                  {domain.EntityLateralSource, domain.ActionDelete},
	"create_breach":                   {domain.EntityLeveeBreach, domain.ActionCreate},
	"update_breach":                   {domain.EntityLeveeBreach, domain.ActionUpdate},
	"delete_breach":                   {domain.EntityLeveeBreach, domain.ActionDelete},
	"update_settings":                 {domain.EntitySettings, domain.ActionUpdate},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	s.recordAudit(ctx, operation, entityID, AuditStatusSuccess, nil, duration)
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, err error, duration time.Duration) {
	s.recordAudit(ctx, operation, entityID, AuditStatusError, err, duration)
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, status AuditStatus, err error, duration time.Duration) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    status,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
