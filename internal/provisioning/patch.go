package provisioning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Optional is a patch field. Set distinguishes an omitted field from an explicit zero or null.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the field as set whenever its key is present, including for null.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true

	if string(b) == "null" {
		var zero T
		o.Value = zero

		return nil
	}

	return json.Unmarshal(b, &o.Value)
}

// MarshalJSON encodes the value, or null when unset.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}

	return json.Marshal(o.Value)
}

// AccountPatch is a partial update of an account profile.
type AccountPatch struct {
	Name      Optional[string] `json:"name"`
	Email     Optional[string] `json:"email"`
	Phone     Optional[string] `json:"phone"`
	Location  Optional[string] `json:"location"`
	CompanyID Optional[*uint]  `json:"company_id"`
}

// Empty reports whether no field is set.
func (p AccountPatch) Empty() bool {
	return !p.Name.Set && !p.Email.Set && !p.Phone.Set && !p.Location.Set && !p.CompanyID.Set
}

// columns returns the account columns to write.
func (p AccountPatch) columns() (map[string]any, error) {
	out := map[string]any{}

	if p.Name.Set {
		if strings.TrimSpace(p.Name.Value) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		out["name"] = p.Name.Value
	}
	if p.Email.Set {
		out["email"] = p.Email.Value
	}
	if p.Phone.Set {
		out["phone"] = p.Phone.Value
	}
	if p.Location.Set {
		out["location"] = p.Location.Value
	}
	if p.CompanyID.Set {
		out["company_id"] = p.CompanyID.Value
	}

	return out, nil
}

// directoryFields returns the Graph user properties mirroring the patch.
func (p AccountPatch) directoryFields() map[string]any {
	out := map[string]any{}

	if p.Name.Set {
		out["displayName"] = p.Name.Value
	}
	if p.Email.Set {
		out["mail"] = nullable(p.Email.Value)
	}
	if p.Phone.Set {
		out["mobilePhone"] = nullable(p.Phone.Value)
	}
	if p.Location.Set {
		out["officeLocation"] = nullable(p.Location.Value)
	}

	return out
}

// nullable clears a Graph property when v is empty.
func nullable(v string) any {
	if v == "" {
		return nil
	}

	return v
}
