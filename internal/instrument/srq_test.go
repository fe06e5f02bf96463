package instrument

import (
	"strings"
	"testing"
)

func TestSrqConclusionTextKnownCodes(t *testing.T) {
	// Every known code must resolve to a non-empty long-form text that
	// differs from the code itself.
	codes := SrqKnownConclusions()
	if len(codes) != 8 {
		t.Fatalf("expected 8 known conclusion codes, got %d", len(codes))
	}
	for _, code := range codes {
		text := SrqConclusionText(code)
		if text == "" {
			t.Errorf("SrqConclusionText(%q) returned empty text", code)
		}
		if text == code {
			t.Errorf("SrqConclusionText(%q) passed through, want long-form text", code)
		}
	}
}

func TestSrqConclusionTextExact(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{
			code: SrqConclusionNormal,
			want: "Tidak ditemukan indikasi gangguan mental emosional, penggunaan zat psikoaktif, gejala psikotik, maupun gejala stres pasca trauma (PTSD). Kondisi mental emosional dalam batas normal.",
		},
		{
			code: SrqConclusionPtsd,
			want: "Ditemukan indikasi gejala stres pasca trauma (PTSD). Disarankan pemeriksaan lanjutan dan konseling dengan psikolog.",
		},
		{
			code: SrqConclusionAllSymptoms,
			want: "Ditemukan indikasi gejala cemas dan depresi, gejala gangguan psikotik, gejala stres pasca trauma (PTSD), serta indikasi penggunaan zat psikoaktif. Disarankan rujukan segera ke psikolog atau psikiater untuk penanganan menyeluruh.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := SrqConclusionText(tt.code); got != tt.want {
				t.Errorf("SrqConclusionText(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestSrqConclusionTextUnknownPassThrough(t *testing.T) {
	for _, code := range []string{"", "Borderline", "tidak normal ptsd", "NORMAL"} {
		if got := SrqConclusionText(code); got != code {
			t.Errorf("SrqConclusionText(%q) = %q, want pass-through", code, got)
		}
	}
}

func TestSrqYesCount(t *testing.T) {
	tests := []struct {
		name    string
		answers map[uint]string
		want    int
	}{
		{name: "empty", answers: map[uint]string{}, want: 0},
		{
			name:    "mixed",
			answers: map[uint]string{1: SrqYes, 2: SrqNo, 3: SrqYes, 4: SrqNo, 5: SrqYes},
			want:    3,
		},
		{
			name:    "only unknown values ignored",
			answers: map[uint]string{1: "y", 2: "yes", 3: ""},
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SrqYesCount(tt.answers); got != tt.want {
				t.Errorf("SrqYesCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSrqFullFormYesCount(t *testing.T) {
	answers := make(map[uint]string, SrqItemCount)
	for i := uint(1); i <= SrqItemCount; i++ {
		if i%2 == 0 {
			answers[i] = SrqYes
		} else {
			answers[i] = SrqNo
		}
	}
	if got := SrqYesCount(answers); got != 14 {
		t.Errorf("SrqYesCount(full form, alternating) = %d, want 14", got)
	}
	if !strings.Contains(SrqConclusionText(SrqConclusionPsychotic), "psikotik") {
		t.Error("psychotic conclusion text should mention the symptom cluster")
	}
}
