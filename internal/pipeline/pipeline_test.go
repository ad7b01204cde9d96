package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boscorat/bankparse/internal/rules"
)

func numericField(name string, vital bool, mod *rules.NumericModifier) rules.Field {
	return rules.Field{
		Field:           name,
		Vital:           vital,
		Type:            rules.KindNumeric,
		NumericCurrency: "GBP",
		NumericModifier: mod,
	}
}

func TestTransformNumeric(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field rules.Field
		want  string
	}{
		{
			name:  "plain amount",
			raw:   "123.45",
			field: numericField("paid_in", true, nil),
			want:  "123.4500",
		},
		{
			name:  "currency symbol and thousands separator",
			raw:   "£1,234.56",
			field: numericField("paid_in", true, nil),
			want:  "1234.5600",
		},
		{
			name:  "negative amount",
			raw:   "-42.00",
			field: numericField("movement", true, nil),
			want:  "-42.0000",
		},
		{
			name:  "embedded whitespace removed",
			raw:   " 1 234.56 ",
			field: numericField("paid_in", true, nil),
			want:  "1234.5600",
		},
		{
			name: "suffix token applies multiplier",
			raw:  "100.00 D",
			field: numericField("balance", true, &rules.NumericModifier{
				Suffix:     "D",
				Multiplier: -1,
			}),
			want: "-100.0000",
		},
		{
			name: "prefix token applies multiplier",
			raw:  "D 55.25",
			field: numericField("balance", true, &rules.NumericModifier{
				Prefix:     "D",
				Multiplier: -1,
			}),
			want: "-55.2500",
		},
		{
			name: "absent token leaves value unscaled",
			raw:  "100.00",
			field: numericField("balance", true, &rules.NumericModifier{
				Suffix:     "D",
				Multiplier: -1,
			}),
			want: "100.0000",
		},
		{
			name: "excluded negative clamps to zero",
			raw:  "-12.34",
			field: numericField("paid_in", false, &rules.NumericModifier{
				ExcludeNegativeValues: true,
			}),
			want: "0.0000",
		},
		{
			name: "excluded positive clamps to zero",
			raw:  "12.34",
			field: numericField("paid_out", false, &rules.NumericModifier{
				ExcludePositiveValues: true,
			}),
			want: "0.0000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(tt.raw, tt.field)
			require.True(t, got.Success, "err: %s", got.Err)
			assert.Equal(t, tt.want, got.Value)
			assert.False(t, got.HardFail)
			assert.Empty(t, got.Err)
		})
	}
}

func TestTransformFailures(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		field    rules.Field
		wantErr  string
		hardFail bool
	}{
		{
			name:     "empty input on vital field",
			raw:      "",
			field:    numericField("opening_balance", true, nil),
			wantErr:  "strip error",
			hardFail: true,
		},
		{
			name:     "whitespace only",
			raw:      "   ",
			field:    numericField("paid_in", false, nil),
			wantErr:  "strip error",
			hardFail: false,
		},
		{
			name:     "non-numeric text on numeric field",
			raw:      "BALANCE BROUGHT FORWARD",
			field:    numericField("paid_in", false, nil),
			wantErr:  "pattern error",
			hardFail: false,
		},
		{
			name:     "text not matching string pattern",
			raw:      "no digits here",
			field:    rules.Field{Field: "account_number", Vital: true, Type: rules.KindString, StringPattern: `[\d]{8}`},
			wantErr:  "pattern error",
			hardFail: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(tt.raw, tt.field)
			assert.False(t, got.Success)
			assert.Empty(t, got.Value)
			assert.Equal(t, tt.wantErr, got.Err)
			assert.Equal(t, tt.hardFail, got.HardFail)
			assert.Equal(t, tt.raw, got.Raw)
		})
	}
}

func TestTransformString(t *testing.T) {
	t.Run("pattern extracts first match", func(t *testing.T) {
		field := rules.Field{
			Field:         "account_number",
			Type:          rules.KindString,
			StringPattern: `[\d]{8}`,
		}
		got := Transform("Account Number: 12345678 Sort Code: 10-20-30", field)
		require.True(t, got.Success)
		assert.Equal(t, "12345678", got.Value)
	})

	t.Run("max length truncates", func(t *testing.T) {
		field := rules.Field{
			Field:           "description",
			Type:            rules.KindString,
			StringMaxLength: 10,
		}
		got := Transform("DIRECT DEBIT PAYMENT TO ACME INSURANCE", field)
		require.True(t, got.Success)
		assert.Equal(t, "DIRECT DEB", got.Value)
	})

	t.Run("max length counts characters not bytes", func(t *testing.T) {
		field := rules.Field{
			Field:           "description",
			Type:            rules.KindString,
			StringMaxLength: 9,
		}
		got := Transform("CAFÉ RÖSTEREI MÜNCHEN", field)
		require.True(t, got.Success)
		assert.Equal(t, "CAFÉ RÖST", got.Value)
	})

	t.Run("strip characters", func(t *testing.T) {
		field := rules.Field{
			Field:                "holder",
			Type:                 rules.KindString,
			StripCharactersStart: "*",
			StripCharactersEnd:   "*",
		}
		got := Transform("**MR J SMITH**", field)
		require.True(t, got.Success)
		assert.Equal(t, "MR J SMITH", got.Value)
	})
}

func TestTransformDatePassesThroughRaw(t *testing.T) {
	field := rules.Field{
		Field:      "date",
		Type:       rules.KindDate,
		DateFormat: "2 Jan 06",
	}
	got := Transform("14 Mar 24", field)
	require.True(t, got.Success)
	assert.Equal(t, "14 Mar 24", got.Value)
}

func TestBuildPattern(t *testing.T) {
	t.Run("string pattern wins", func(t *testing.T) {
		assert.Equal(t, `[\d]{8}`, BuildPattern(`[\d]{8}`, `^-?[\d]+[.][\d]{2}$`, "D", ""))
	})
	t.Run("prefix widens anchor", func(t *testing.T) {
		assert.Equal(t, `^(D)?\s?-?[\d]+[.][\d]{2}$`, BuildPattern("", `^-?[\d]+[.][\d]{2}$`, "D", ""))
	})
	t.Run("suffix widens anchor", func(t *testing.T) {
		assert.Equal(t, `^-?[\d]+[.][\d]{2}\s?(CR)?$`, BuildPattern("", `^-?[\d]+[.][\d]{2}$`, "", "CR"))
	})
}

func TestTransformNeverPanics(t *testing.T) {
	fields := []rules.Field{
		{},
		{Type: rules.KindNumeric},
		{Type: rules.KindNumeric, NumericCurrency: "XXX_NOT_A_CURRENCY"},
		{Type: rules.KindString, StringPattern: `([`},
	}
	for _, f := range fields {
		for _, raw := range []string{"", "   ", "abc", "£1,0,0..0"} {
			got := Transform(raw, f)
			assert.False(t, got.HardFail && got.Success)
		}
	}
}

func TestOffsetField(t *testing.T) {
	primary := rules.Field{
		Field:         "balance",
		Vital:         false,
		Type:          rules.KindString,
		StringPattern: `.+`,
		ValueOffset: &rules.FieldOffset{
			ColsOffset:      1,
			Vital:           true,
			Type:            rules.KindNumeric,
			NumericCurrency: "GBP",
			NumericModifier: &rules.NumericModifier{Suffix: "D", Multiplier: -1},
		},
	}
	f := OffsetField(primary)
	assert.Equal(t, "balance", f.Field)
	assert.True(t, f.Vital)
	assert.Equal(t, rules.KindNumeric, f.Type)
	assert.Equal(t, "GBP", f.NumericCurrency)
	assert.Empty(t, f.StringPattern)
	assert.Nil(t, f.ValueOffset)

	got := Transform("75.00 D", f)
	require.True(t, got.Success)
	assert.Equal(t, "-75.0000", got.Value)
}
