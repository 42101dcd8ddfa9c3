package glossary

import "strings"

type honorificEntry struct {
	entityType EntityType
	notes      string
}

// honorifics maps known honorific and relational terms to their
// classification. These are never translated to an English equivalent: the
// suggested translation is always the source token itself (or its
// established transliteration).
var honorifics = map[string]honorificEntry{
	// Korean
	"형":   {EntityHonorificKorean, "older brother (male speaker); kept untranslated"},
	"오빠":  {EntityHonorificKorean, "older brother (female speaker); kept untranslated"},
	"누나":  {EntityHonorificKorean, "older sister (male speaker); kept untranslated"},
	"언니":  {EntityHonorificKorean, "older sister (female speaker); kept untranslated"},
	"선배":  {EntityHonorificKorean, "senior colleague or upperclassman"},
	"후배":  {EntityHonorificKorean, "junior colleague or underclassman"},
	"아저씨": {EntityHonorificKorean, "middle-aged man, informal address"},
	"아줌마": {EntityHonorificKorean, "middle-aged woman, informal address"},
	"씨":   {EntityHonorificKorean, "neutral name suffix"},
	"님":   {EntityHonorificKorean, "respectful name suffix"},

	// Chinese
	"哥哥": {EntityHonorificChinese, "older brother; kept untranslated"},
	"姐姐": {EntityHonorificChinese, "older sister; kept untranslated"},
	"弟弟": {EntityHonorificChinese, "younger brother; kept untranslated"},
	"妹妹": {EntityHonorificChinese, "younger sister; kept untranslated"},
	"师父": {EntityHonorificChinese, "master or teacher in a discipline"},
	"前辈": {EntityHonorificChinese, "senior, person of an earlier generation"},
	"大人": {EntityHonorificChinese, "respectful address for authority"},

	// Japanese
	"先輩":   {EntityHonorificJapanese, "senior colleague or upperclassman"},
	"後輩":   {EntityHonorificJapanese, "junior colleague or underclassman"},
	"お嬢様":  {EntityHonorificJapanese, "young lady of a noble house"},
	"様":    {EntityHonorificJapanese, "highly respectful name suffix"},
	"殿":    {EntityHonorificJapanese, "archaic respectful name suffix"},
	"先生":   {EntityHonorificJapanese, "teacher, doctor, or master"},
	"お兄ちゃん": {EntityHonorificJapanese, "older brother, affectionate; kept untranslated"},
	"お姉ちゃん": {EntityHonorificJapanese, "older sister, affectionate; kept untranslated"},

	// Established transliterations encountered in already-romanized text.
	"oppa":   {EntityHonorificKorean, "transliteration of 오빠"},
	"hyung":  {EntityHonorificKorean, "transliteration of 형"},
	"noona":  {EntityHonorificKorean, "transliteration of 누나"},
	"unnie":  {EntityHonorificKorean, "transliteration of 언니"},
	"sunbae": {EntityHonorificKorean, "transliteration of 선배"},
	"ahjussi": {EntityHonorificKorean, "transliteration of 아저씨"},
	"senpai": {EntityHonorificJapanese, "transliteration of 先輩"},
	"sensei": {EntityHonorificJapanese, "transliteration of 先生"},
	"shifu":  {EntityHonorificChinese, "transliteration of 师父"},
}

// LookupHonorific returns the preserved glossary term for a known honorific
// token, or false when the token is not one.
func LookupHonorific(token string) (Term, bool) {
	entry, ok := honorifics[token]
	if !ok {
		entry, ok = honorifics[strings.ToLower(token)]
	}
	if !ok {
		return Term{}, false
	}
	return Term{
		SourceTerm:     token,
		TranslatedTerm: token,
		EntityType:     entry.entityType,
		Gender:         GenderUnknown,
		Notes:          entry.notes,
		AutoSuggested:  true,
		Status:         StatusPending,
	}, true
}
