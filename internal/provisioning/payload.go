package provisioning

import (
	"maps"

	"github.com/staffgate/staffgate/internal/db/models"
)

// BuildPayload assembles the third-party provisioning request for an assignment.
// Module specific fields are added by module code, then the module's static extra
// fields are merged without overriding the common fields.
func BuildPayload(account *models.Account, module *models.Module, role *models.Role, location string) map[string]any {
	payload := map[string]any{
		"employee_id":    account.EmployeeID,
		"name":           account.Name,
		"email":          account.Email,
		"principal_name": deref(account.DirectoryPrincipalName),
		"phone":          account.Phone,
		"location":       location,
		"module_code":    module.Code,
		"role":           role.Name,
		"role_code":      role.Code,
		"company_id":     account.CompanyID,
	}

	switch module.Code {
	case "SCM":
		payload["warehouse_code"] = location
		payload["approval_level"] = role.Code
	case "HRMS":
		payload["staff_number"] = account.EmployeeID
		payload["self_service"] = true
	case "CRM":
		payload["territory"] = location
		payload["sales_role"] = role.Name
	}

	extra := maps.Clone(map[string]any(module.ExtraFields))
	for k := range payload {
		delete(extra, k)
	}
	maps.Copy(payload, extra)

	return payload
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
