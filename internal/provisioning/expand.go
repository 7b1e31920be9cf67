package provisioning

import "strings"

// All is the sentinel that expands to every available value.
const All = "all"

// RawAssignment is one request row. Each list may contain All.
type RawAssignment struct {
	Modules   []string `json:"modules"   validate:"required,min=1,dive,required"`
	Roles     []string `json:"roles"     validate:"required,min=1,dive,required"`
	Locations []string `json:"locations" validate:"omitempty,dive,required"`
}

// AssignmentRequest is one expanded (module code, role name, location) tuple.
type AssignmentRequest struct {
	Module   string `json:"module"`
	Role     string `json:"role"`
	Location string `json:"location,omitempty"`
}

// ExpandAssignmentRequests replaces All in every row with the available values and
// returns the cartesian product of each row, without duplicates, in request order.
// A row without locations yields tuples with an empty location.
func ExpandAssignmentRequests(
	rows []RawAssignment,
	availableLocations, availableModules, availableRoles []string,
) []AssignmentRequest {
	var (
		out  []AssignmentRequest
		seen = map[AssignmentRequest]struct{}{}
	)

	for _, row := range rows {
		modules := expand(row.Modules, availableModules)
		roles := expand(row.Roles, availableRoles)

		locations := expand(row.Locations, availableLocations)
		if len(row.Locations) == 0 {
			locations = []string{""}
		}

		for _, m := range modules {
			for _, r := range roles {
				for _, l := range locations {
					req := AssignmentRequest{Module: m, Role: r, Location: l}
					if _, dup := seen[req]; dup {
						continue
					}
					seen[req] = struct{}{}
					out = append(out, req)
				}
			}
		}
	}

	return out
}

func expand(values, available []string) []string {
	var out []string

	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, All) {
			out = append(out, available...)
			continue
		}
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
