package instrument

const (
	SrqItemCount = 29

	SrqYes = "Y"
	SrqNo  = "N"
)

// SRQ-29 conclusion short codes, as submitted by the assessment client.
const (
	SrqConclusionNormal           = "Normal"
	SrqConclusionPtsd             = "Tidak Normal PTSD"
	SrqConclusionAnxiety          = "Tidak Normal Cemas Depresi"
	SrqConclusionPsychotic        = "Tidak Normal Psikotik"
	SrqConclusionPtsdPsychotic    = "Tidak Normal PTSD dan Psikotik"
	SrqConclusionAnxietyPtsd      = "Tidak Normal Cemas Depresi dan PTSD"
	SrqConclusionAnxietyPsychotic = "Tidak Normal Cemas Depresi dan Psikotik"
	SrqConclusionAllSymptoms      = "Tidak Normal Cemas Depresi, Psikotik, PTSD dan Penggunaan Zat"
)

// srqConclusionTexts maps each known conclusion code to the long-form text
// shown to psychologists. Unknown codes pass through unchanged.
var srqConclusionTexts = map[string]string{
	SrqConclusionNormal:           "Tidak ditemukan indikasi gangguan mental emosional, penggunaan zat psikoaktif, gejala psikotik, maupun gejala stres pasca trauma (PTSD). Kondisi mental emosional dalam batas normal.",
	SrqConclusionPtsd:             "Ditemukan indikasi gejala stres pasca trauma (PTSD). Disarankan pemeriksaan lanjutan dan konseling dengan psikolog.",
	SrqConclusionAnxiety:          "Ditemukan indikasi gejala cemas dan depresi (gangguan mental emosional). Disarankan pemeriksaan lanjutan dan konseling dengan psikolog.",
	SrqConclusionPsychotic:        "Ditemukan indikasi gejala gangguan psikotik. Disarankan rujukan segera ke psikolog atau psikiater untuk pemeriksaan lanjutan.",
	SrqConclusionPtsdPsychotic:    "Ditemukan indikasi gejala stres pasca trauma (PTSD) disertai gejala gangguan psikotik. Disarankan rujukan segera ke psikolog atau psikiater.",
	SrqConclusionAnxietyPtsd:      "Ditemukan indikasi gejala cemas dan depresi disertai gejala stres pasca trauma (PTSD). Disarankan pemeriksaan lanjutan dan konseling dengan psikolog.",
	SrqConclusionAnxietyPsychotic: "Ditemukan indikasi gejala cemas dan depresi disertai gejala gangguan psikotik. Disarankan rujukan segera ke psikolog atau psikiater.",
	SrqConclusionAllSymptoms:      "Ditemukan indikasi gejala cemas dan depresi, gejala gangguan psikotik, gejala stres pasca trauma (PTSD), serta indikasi penggunaan zat psikoaktif. Disarankan rujukan segera ke psikolog atau psikiater untuk penanganan menyeluruh.",
}

// SrqConclusionText resolves a conclusion code to its long-form text.
// Codes outside the fixed table are returned unchanged rather than rejected,
// so a newer client vocabulary degrades to showing the code itself.
func SrqConclusionText(conclusion string) string {
	if text, ok := srqConclusionTexts[conclusion]; ok {
		return text
	}
	return conclusion
}

// SrqKnownConclusions returns the fixed set of conclusion codes.
func SrqKnownConclusions() []string {
	codes := make([]string, 0, len(srqConclusionTexts))
	for code := range srqConclusionTexts {
		codes = append(codes, code)
	}
	return codes
}

// SrqYesCount counts affirmative answers across the full answer set. This is
// the persisted SRQ score and is always computed server-side, regardless of
// the flags the client submitted.
func SrqYesCount(answers map[uint]string) int {
	count := 0
	for _, v := range answers {
		if v == SrqYes {
			count++
		}
	}
	return count
}
