package phone

import "testing"

func TestToLocalForm_StripsCountryCodeAndFormatting(t *testing.T) {
	got, err := ToLocalForm("+52 55 1234 5678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5512345678" {
		t.Fatalf("expected 5512345678, got %s", got)
	}
}

func TestToLocalForm_KeepsLastTenDigits(t *testing.T) {
	got, err := ToLocalForm("5215512345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5512345678" {
		t.Fatalf("expected 5512345678, got %s", got)
	}
}

func TestToLocalForm_RejectsShortNumbers(t *testing.T) {
	if _, err := ToLocalForm("12345"); err == nil {
		t.Fatal("expected error for short number")
	}
}

func TestToGatewayForm_TenDigitsGetsMobilePrefix(t *testing.T) {
	if got := ToGatewayForm("5512345678"); got != "5215512345678" {
		t.Fatalf("expected 5215512345678, got %s", got)
	}
}

func TestToGatewayForm_AlreadyPrefixedUnchanged(t *testing.T) {
	if got := ToGatewayForm("5215512345678"); got != "5215512345678" {
		t.Fatalf("expected 5215512345678, got %s", got)
	}
}

func TestToGatewayForm_ElevenDigitsLeadingOne(t *testing.T) {
	if got := ToGatewayForm("15512345678"); got != "525512345678" {
		t.Fatalf("expected 525512345678, got %s", got)
	}
}

func TestToGatewayForm_TenDigitsStartingWithCountryCode(t *testing.T) {
	// A 10-digit local number happening to start with 52 is still local.
	if got := ToGatewayForm("5298765432"); got != "5215298765432" {
		t.Fatalf("expected 5215298765432, got %s", got)
	}
}

func TestToGatewayForm_UnknownShapePassedThrough(t *testing.T) {
	if got := ToGatewayForm("123"); got != "123" {
		t.Fatalf("expected 123, got %s", got)
	}
}

func TestIsValidLocal(t *testing.T) {
	if !IsValidLocal("5512345678") {
		t.Fatal("expected 10-digit number to be valid")
	}
	if IsValidLocal("551234567") {
		t.Fatal("expected 9-digit number to be invalid")
	}
	if IsValidLocal("55123456a8") {
		t.Fatal("expected non-digit content to be invalid")
	}
}

func TestIsGatewayDeliverable(t *testing.T) {
	if !IsGatewayDeliverable("5215512345678") {
		t.Fatal("expected 13-digit prefixed number to be deliverable")
	}
	if !IsGatewayDeliverable("525512345678") {
		t.Fatal("expected 12-digit prefixed number to be deliverable")
	}
	if IsGatewayDeliverable("5512345678") {
		t.Fatal("expected unprefixed number to be rejected")
	}
	if IsGatewayDeliverable("52155123456789") {
		t.Fatal("expected 14-digit number to be rejected")
	}
}

func TestNormalizeE164_ValidMexicanNumber(t *testing.T) {
	if got := NormalizeE164("55 1234 5678"); got != "+525512345678" {
		t.Fatalf("expected +525512345678, got %s", got)
	}
}

func TestNormalizeE164_UnparseableReturnsTrimmedInput(t *testing.T) {
	if got := NormalizeE164("  not-a-number  "); got != "not-a-number" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}
