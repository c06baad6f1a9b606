package pdb

import "github.com/google/uuid"

// NotApplicable is the language name used for unknown language GUIDs.
const NotApplicable = "n/a"

// Source language GUIDs as emitted by Microsoft compilers.
var (
	LanguageC          = uuid.MustParse("63a08714-fc37-11d2-904c-00c04fa302a1")
	LanguageCpp        = uuid.MustParse("3a12d0b7-c26c-11d0-b442-00a0244a1dd2")
	LanguageCSharp     = uuid.MustParse("3f5162f8-07c6-11d3-9053-00c04fa302a1")
	LanguageBasic      = uuid.MustParse("3a12d0b8-c26c-11d0-b442-00a0244a1dd2")
	LanguageJava       = uuid.MustParse("3a12d0b4-c26c-11d0-b442-00a0244a1dd2")
	LanguageCobol      = uuid.MustParse("af046cd1-d0e1-11d2-977c-00a0c9b4d50c")
	LanguagePascal     = uuid.MustParse("af046cd2-d0e1-11d2-977c-00a0c9b4d50c")
	LanguageILAssembly = uuid.MustParse("af046cd3-d0e1-11d2-977c-00a0c9b4d50c")
	LanguageJScript    = uuid.MustParse("3a12d0b6-c26c-11d0-b442-00a0244a1dd2")
	LanguageSMC        = uuid.MustParse("0d9b9f7b-6611-11d3-bd2a-0000f80849bd")
	LanguageMCpp       = uuid.MustParse("4b35fde8-07c6-11d3-9053-00c04fa302a1")
	LanguageFSharp     = uuid.MustParse("ab4f38c9-b6e6-43ba-be3b-58080b2ccce3")
)

var languageNames = map[uuid.UUID]string{
	LanguageC:          "C",
	LanguageCpp:        "C++",
	LanguageCSharp:     "C#",
	LanguageBasic:      "Basic",
	LanguageJava:       "Java",
	LanguageCobol:      "Cobol",
	LanguagePascal:     "Pascal",
	LanguageILAssembly: "ILAssembly",
	LanguageJScript:    "JScript",
	LanguageSMC:        "SMC",
	LanguageMCpp:       "MCpp",
	LanguageFSharp:     "F#",
}

// LanguageName returns the display name of a language GUID.
func LanguageName(id uuid.UUID) (string, bool) {
	name, ok := languageNames[id]
	return name, ok
}

// LanguageNameOrDefault is like LanguageName but falls back to
// NotApplicable for unknown GUIDs.
func LanguageNameOrDefault(id uuid.UUID) string {
	if name, ok := languageNames[id]; ok {
		return name
	}
	return NotApplicable
}

// LanguageByName is the reverse of LanguageName.
func LanguageByName(name string) (uuid.UUID, bool) {
	for id, n := range languageNames {
		if n == name {
			return id, true
		}
	}
	return uuid.Nil, false
}
