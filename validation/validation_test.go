package validation

import "testing"

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("projectName", "  ", v)
	Email("email", "not-an-email", v)
	NonNegativeFloat("deliveryFee", -1, v)
	MinFloat("quantity", 0.05, 0.1, v)
	RangeFloat("depositPercentage", 120, 0, 100, v)
	OneOf("status", "archived", []string{"draft", "sent"}, v)
	PositiveFloat("amount", 0, v)
	RequiredID("contractorId", 0, v)
	MinLength("password", "abc", 8, v)

	want := map[string]string{
		"projectName":       "required",
		"email":             "invalid_email",
		"deliveryFee":       "must_not_be_negative",
		"quantity":          "below_minimum",
		"depositPercentage": "out_of_range",
		"status":            "invalid_choice",
		"amount":            "must_be_positive",
		"contractorId":      "required",
		"password":          "too_short",
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s = %q, want %q", field, v[field], code)
		}
	}
	if v.Empty() {
		t.Error("expected violations")
	}
}

func TestValidators_Valid(t *testing.T) {
	v := Violations{}
	Required("projectName", "Loft", v)
	Email("email", "client@example.com", v)
	NonNegativeFloat("deliveryFee", 0, v)
	MinFloat("quantity", 0.1, 0.1, v)
	RangeFloat("depositPercentage", 100, 0, 100, v)
	OneOf("status", "sent", []string{"draft", "sent"}, v)
	if !v.Empty() {
		t.Errorf("unexpected violations: %v", v)
	}
}

func TestAdd_KeepsFirstCode(t *testing.T) {
	v := Violations{}
	v.Add("email", "required")
	v.Add("email", "invalid_email")
	if v["email"] != "required" {
		t.Errorf("email = %q", v["email"])
	}
}
