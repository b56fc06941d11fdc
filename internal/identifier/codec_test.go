package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rtscore/pkg/domain-errors"
)

func TestInstitutionInitials(t *testing.T) {
	assert.Equal(t, "RCC", InstitutionInitials("Rajtech Computer Center"))
	assert.Equal(t, "RCC", InstitutionInitials("  rajtech   computer center "))
	assert.Equal(t, "A", InstitutionInitials("Academy"))
}

func TestInstitutionCode(t *testing.T) {
	assert.Equal(t, "RAJ", InstitutionCode("Rajtech Computer Center"))
	assert.Equal(t, "AB", InstitutionCode("A B"))
}

func TestFormatEnrollment(t *testing.T) {
	t.Run("first student of Dec 2025", func(t *testing.T) {
		s, err := FormatEnrollment(Enrollment{District: "NAL", Initials: "RCC", Month: 12, Year: 2025, Seq: 1})
		require.NoError(t, err)
		assert.Equal(t, "RTS-NAL-RCC-12-2025-0001", s)
	})

	t.Run("pads month and sequence", func(t *testing.T) {
		s, err := FormatEnrollment(Enrollment{District: "PAT", Initials: "XY", Month: 3, Year: 2024, Seq: 42})
		require.NoError(t, err)
		assert.Equal(t, "RTS-PAT-XY-03-2024-0042", s)
	})

	t.Run("overflow fails rather than truncating", func(t *testing.T) {
		_, err := FormatEnrollment(Enrollment{District: "NAL", Initials: "RCC", Month: 12, Year: 2025, Seq: 10000})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSequenceOverflow))
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		cases := []Enrollment{
			{District: "nal", Initials: "RCC", Month: 1, Year: 2025, Seq: 1},
			{District: "NAL", Initials: "", Month: 1, Year: 2025, Seq: 1},
			{District: "NAL", Initials: "RCC", Month: 0, Year: 2025, Seq: 1},
			{District: "NAL", Initials: "RCC", Month: 13, Year: 2025, Seq: 1},
			{District: "NAL", Initials: "RCC", Month: 1, Year: 25, Seq: 1},
			{District: "NAL", Initials: "RCC", Month: 1, Year: 2025, Seq: 0},
		}
		for _, c := range cases {
			_, err := FormatEnrollment(c)
			assert.Error(t, err, "fields %+v should not format", c)
		}
	})
}

func TestEnrollmentRoundTrip(t *testing.T) {
	fields := []Enrollment{
		{District: "NAL", Initials: "RCC", Month: 12, Year: 2025, Seq: 1},
		{District: "PAT", Initials: "A", Month: 1, Year: 2031, Seq: 9999},
		{District: "MUZ", Initials: "ABCDEFGH", Month: 6, Year: 2024, Seq: 512},
	}
	for _, f := range fields {
		s, err := FormatEnrollment(f)
		require.NoError(t, err)
		parsed, err := ParseEnrollment(s)
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestParseEnrollmentRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"RTS-NAL-RCC-12-2025",
		"RTS-NAL-RCC-13-2025-0001",
		"RTS-NAL-RCC-12-2025-0000",
		"RCT-NAL-2025-0001",
		"rts-nal-rcc-12-2025-0001",
		"RTS-NAL-RCC-12-2025-0001-extra",
		"RTS--RCC-12-2025-0001",
	}
	for _, s := range malformed {
		_, err := ParseEnrollment(s)
		require.Error(t, err, "input %q should be rejected", s)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "input %q", s)
	}
}

func TestReceiptRoundTrip(t *testing.T) {
	fields := []Receipt{
		{InstCode: "RAJ", Year: 2025, Seq: 1},
		{InstCode: "AB", Year: 2030, Seq: 9999},
	}
	for _, f := range fields {
		s, err := FormatReceipt(f)
		require.NoError(t, err)
		parsed, err := ParseReceipt(s)
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestFormatReceipt(t *testing.T) {
	s, err := FormatReceipt(Receipt{InstCode: "RAJ", Year: 2025, Seq: 7})
	require.NoError(t, err)
	assert.Equal(t, "RCT-RAJ-2025-0007", s)

	_, err = FormatReceipt(Receipt{InstCode: "RAJ", Year: 2025, Seq: 12000})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSequenceOverflow))
}

func TestParseReceiptRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "RCT-RAJ-25-0001", "RCT-RAJ-2025-001", "RTS-RAJ-2025-0001", "RCT-raj-2025-0001"} {
		_, err := ParseReceipt(s)
		require.Error(t, err, "input %q should be rejected", s)
	}
}

func TestCertificateRoundTrip(t *testing.T) {
	s, err := FormatCertificate(Certificate{InstCode: "RAJ", Year: 2025, Seq: 3})
	require.NoError(t, err)
	assert.Equal(t, "CRT-RAJ-2025-0003", s)

	parsed, err := ParseCertificate(s)
	require.NoError(t, err)
	assert.Equal(t, Certificate{InstCode: "RAJ", Year: 2025, Seq: 3}, parsed)

	for _, malformed := range []string{"CERT-RAJ-2025-0003", "CRT-2025-0003", "CRT-raj-2025-0003"} {
		_, err = ParseCertificate(malformed)
		require.Error(t, err, "input %q should be rejected", malformed)
	}
}

// Tenant-scoped counters mint the same sequence values; the institution
// code is what keeps the rendered numbers distinct.
func TestCertificateNumbersDifferByInstitution(t *testing.T) {
	a, err := FormatCertificate(Certificate{InstCode: "RAJ", Year: 2026, Seq: 1})
	require.NoError(t, err)
	b, err := FormatCertificate(Certificate{InstCode: "SUN", Year: 2026, Seq: 1})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = FormatCertificate(Certificate{Year: 2026, Seq: 1})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
