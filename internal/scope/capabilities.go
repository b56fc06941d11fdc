package scope

import (
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Operation names one entry point into the core. Role checks happen once at
// the entry point against the table below, never inline per field.
type Operation string

const (
	OpRegisterStudent  Operation = "student.register"
	OpEnrollCourse     Operation = "student.enroll"
	OpRemoveStudent    Operation = "student.remove"
	OpRecordPayment    Operation = "ledger.record_payment"
	OpRecordAdjustment Operation = "ledger.record_adjustment"
	OpViewBalance      Operation = "ledger.view_balance"
	OpScheduleExam     Operation = "exam.schedule"
	OpManageQuestions  Operation = "exam.manage_questions"
	OpTakeExam         Operation = "exam.take"
	OpEnterMarks       Operation = "exam.enter_marks"
	OpVerifyExam       Operation = "exam.verify"
	OpCancelExam       Operation = "exam.cancel"
	OpViewOwnResult    Operation = "exam.view_own_result"
	OpIssueCertificate Operation = "certificate.issue"
	OpMarkAttendance   Operation = "attendance.mark"
	OpComputePayroll   Operation = "payroll.compute"
	OpFinalizePayroll  Operation = "payroll.finalize"
)

// capabilities is the closed {operation → allowed roles} table. Adding an
// operation without a row here makes it unreachable, which is the safe
// default.
var capabilities = map[Operation][]domain.Role{
	OpRegisterStudent:  {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant, domain.RoleReceptionist},
	OpEnrollCourse:     {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant, domain.RoleReceptionist},
	OpRemoveStudent:    {domain.RoleSuperAdmin, domain.RoleDirector},
	OpRecordPayment:    {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant, domain.RoleReceptionist},
	OpRecordAdjustment: {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant},
	OpViewBalance:      {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant, domain.RoleReceptionist, domain.RoleStudent},
	OpScheduleExam:     {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleStaffManager},
	OpManageQuestions:  {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleStaffManager},
	OpTakeExam:         {domain.RoleStudent},
	OpEnterMarks:       {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant},
	OpVerifyExam:       {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleStaffManager},
	OpCancelExam:       {domain.RoleSuperAdmin, domain.RoleDirector},
	OpViewOwnResult:    {domain.RoleStudent},
	OpIssueCertificate: {domain.RoleSuperAdmin, domain.RoleDirector},
	OpMarkAttendance:   {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleStaffManager},
	OpComputePayroll:   {domain.RoleSuperAdmin, domain.RoleDirector, domain.RoleAccountant},
	OpFinalizePayroll:  {domain.RoleSuperAdmin, domain.RoleDirector},
}

// Authorize checks the capability table and resolves the actor's scope in
// one step. Services call this at the top of every operation.
func Authorize(actor domain.Actor, op Operation) (Scope, error) {
	allowed, ok := capabilities[op]
	if !ok {
		return Scope{}, dErrors.Newf(dErrors.CodeForbidden, "operation %q is not registered", op)
	}
	for _, role := range allowed {
		if actor.Role == role {
			return Resolve(actor)
		}
	}
	return Scope{}, dErrors.Newf(dErrors.CodeForbidden, "role %q may not perform %q", actor.Role, op)
}
