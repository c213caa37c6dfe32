package services

import (
	"regexp"
	"strings"

	"github.com/codyseavey/tcg-scanner/internal/models"
)

// Maximum OCR text length the regexes run over. FullText keeps the whole input.
const maxOCRTextLength = 10000

var (
	// "<name> HP <digits>" and "<name> <digits> HP", tried in that order per line
	nameHPPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(.+?)\s+HP\s*(\d+)\b`),
		regexp.MustCompile(`(?i)^(.+?)\s+(\d+)\s*HP\b`),
	}

	setNumberRegex  = regexp.MustCompile(`\b(\d+)\s*/\s*(\d+)\b`)
	galleryRegex    = regexp.MustCompile(`\b(TG|GG)(\d+)\s*/\s*(?:TG|GG)(\d+)\b`)
	typeRegex       = regexp.MustCompile(`(?i)\b(Fire|Water|Grass|Electric|Psychic|Fighting|Dark|Steel|Fairy|Dragon|Normal|Colorless)\b`)
	rareWordRegex   = regexp.MustCompile(`(?i)\bRare\b`)
	setCodeRegex    = regexp.MustCompile(`\b(SWSH\d{1,2}|SV\d{1,2}|XY\d{1,2}|SM\d{1,2}|BW\d{1,2}|PGO|CEL25)\b`)
	attackLineRegex = regexp.MustCompile(`^([A-Z][A-Za-z' \-]{2,30}?)\s+(\d{1,3}[+×x]?)$`)
	weaknessRegex   = regexp.MustCompile(`(?i)\bweakness\b[\s:]*((?:[A-Za-z]+\s*)?[×x+]\s*\d+)`)
	resistanceRegex = regexp.MustCompile(`(?i)\bresistance\b[\s:]*((?:[A-Za-z]+\s*)?[-−]\s*\d+)`)
	retreatRegex    = regexp.MustCompile(`(?i)\bretreat(?:\s+cost)?\b[\s:]*(\d+)`)
	illusRegex      = regexp.MustCompile(`(?i)\billus(?:trator|\.)?[\s:.]*(.+)$`)
)

// canonicalTypes maps a lowercased type token to the casing reported in CardInfo
var canonicalTypes = map[string]string{
	"fire":      "Fire",
	"water":     "Water",
	"grass":     "Grass",
	"electric":  "Electric",
	"psychic":   "Psychic",
	"fighting":  "Fighting",
	"dark":      "Dark",
	"steel":     "Steel",
	"fairy":     "Fairy",
	"dragon":    "Dragon",
	"normal":    "Normal",
	"colorless": "Colorless",
}

// attackSkipWords are tokens that show up on "<words> <digits>" lines that are not attacks
var attackSkipWords = []string{"hp", "weakness", "resistance", "retreat", "illus", "stage", "evolves", "©", "nintendo"}

type knownSet struct {
	match string // uppercase text to look for
	code  string
	name  string
}

// knownSets lists set names printed on cards. Longest match wins.
var knownSets = []knownSet{
	{"SCARLET & VIOLET", "sv1", "Scarlet & Violet"},
	{"PALDEA EVOLVED", "sv2", "Paldea Evolved"},
	{"OBSIDIAN FLAMES", "sv3", "Obsidian Flames"},
	{"PARADOX RIFT", "sv4", "Paradox Rift"},
	{"PALDEAN FATES", "sv4pt5", "Paldean Fates"},
	{"TEMPORAL FORCES", "sv5", "Temporal Forces"},
	{"TWILIGHT MASQUERADE", "sv6", "Twilight Masquerade"},
	{"SHROUDED FABLE", "sv6pt5", "Shrouded Fable"},
	{"STELLAR CROWN", "sv7", "Stellar Crown"},
	{"SURGING SPARKS", "sv8", "Surging Sparks"},
	{"PRISMATIC EVOLUTIONS", "sv8pt5", "Prismatic Evolutions"},
	{"SWORD & SHIELD", "swsh1", "Sword & Shield"},
	{"REBEL CLASH", "swsh2", "Rebel Clash"},
	{"DARKNESS ABLAZE", "swsh3", "Darkness Ablaze"},
	{"CHAMPION'S PATH", "swsh3pt5", "Champion's Path"},
	{"VIVID VOLTAGE", "swsh4", "Vivid Voltage"},
	{"SHINING FATES", "swsh4pt5", "Shining Fates"},
	{"BATTLE STYLES", "swsh5", "Battle Styles"},
	{"CHILLING REIGN", "swsh6", "Chilling Reign"},
	{"EVOLVING SKIES", "swsh7", "Evolving Skies"},
	{"FUSION STRIKE", "swsh8", "Fusion Strike"},
	{"BRILLIANT STARS", "swsh9", "Brilliant Stars"},
	{"ASTRAL RADIANCE", "swsh10", "Astral Radiance"},
	{"LOST ORIGIN", "swsh11", "Lost Origin"},
	{"SILVER TEMPEST", "swsh12", "Silver Tempest"},
	{"CROWN ZENITH", "swsh12pt5", "Crown Zenith"},
	{"SUN & MOON", "sm1", "Sun & Moon"},
	{"GUARDIANS RISING", "sm2", "Guardians Rising"},
	{"BURNING SHADOWS", "sm3", "Burning Shadows"},
	{"HIDDEN FATES", "sm11pt5", "Hidden Fates"},
	{"COSMIC ECLIPSE", "sm12", "Cosmic Eclipse"},
	{"EVOLUTIONS", "xy12", "Evolutions"},
	{"BASE SET", "base1", "Base"},
	{"JUNGLE", "base2", "Jungle"},
	{"FOSSIL", "base3", "Fossil"},
}

// setTotals maps a printed set total to a set code when only one set uses it
var setTotals = map[string]string{
	"193": "sv2",
	"197": "sv3",
	"182": "sv4",
	"218": "sv5",
	"167": "sv6",
	"175": "sv7",
	"191": "sv8",
	"202": "swsh1",
	"192": "swsh2",
	"185": "swsh4",
	"163": "swsh5",
	"203": "swsh7",
	"264": "swsh8",
	"172": "swsh9",
	"196": "swsh11",
	"195": "swsh12",
	"102": "base1",
}

// ParseCardText turns raw OCR text into a CardInfo. It never fails; fields that cannot be
// located are left empty and FullText always holds the untouched input.
func ParseCardText(raw string) models.CardInfo {
	info := models.CardInfo{FullText: raw}

	text := raw
	if len(text) > maxOCRTextLength {
		text = text[:maxOCRTextLength]
	}

	lines := cleanLines(text)
	nameLine := parseNameAndHP(&info, lines)

	parseSetNumber(&info, text)
	if m := typeRegex.FindStringSubmatch(text); m != nil {
		info.Type = canonicalTypes[strings.ToLower(m[1])]
	}
	info.Rarity = detectRarity(text)

	upper := strings.ToUpper(text)
	detectSet(&info, upper)
	info.Attacks = parseAttacks(lines, nameLine)
	info.Weakness = firstGroup(weaknessRegex, text)
	info.Resistance = firstGroup(resistanceRegex, text)
	info.RetreatCost = firstGroup(retreatRegex, text)
	for _, line := range lines {
		if m := illusRegex.FindStringSubmatch(line); m != nil {
			info.Artist = strings.TrimSpace(m[1])
			break
		}
	}

	return info
}

func cleanLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if cleaned := strings.TrimSpace(line); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// parseNameAndHP fills Name and HP and returns the index of the line the name came from
func parseNameAndHP(info *models.CardInfo, lines []string) int {
	for i, line := range lines {
		for _, re := range nameHPPatterns {
			if m := re.FindStringSubmatch(line); m != nil {
				info.Name = strings.TrimSpace(m[1])
				info.HP = m[2]
				return i
			}
		}
	}
	if len(lines) > 0 {
		info.Name = lines[0]
		return 0
	}
	return -1
}

func parseSetNumber(info *models.CardInfo, text string) {
	m := setNumberRegex.FindStringSubmatch(text)
	if m == nil {
		if g := galleryRegex.FindStringSubmatch(text); g != nil {
			info.CardNumber = g[1] + g[2]
		}
		return
	}
	info.SetNumber = m[1] + "/" + m[2]
	info.CardNumber = strings.TrimLeft(m[1], "0")
	if info.CardNumber == "" {
		info.CardNumber = "0"
	}
	info.TotalCards = m[2]
}

// detectRarity applies the rarity rules in priority order: star or the word Rare,
// then diamond, then filled circle.
func detectRarity(text string) string {
	switch {
	case strings.ContainsAny(text, "★☆") || rareWordRegex.MatchString(text):
		return "Rare"
	case strings.ContainsAny(text, "◆◇"):
		return "Uncommon"
	case strings.Contains(text, "●"):
		return "Common"
	}
	return ""
}

func detectSet(info *models.CardInfo, upper string) {
	var best *knownSet
	for i := range knownSets {
		s := &knownSets[i]
		if strings.Contains(upper, s.match) && (best == nil || len(s.match) > len(best.match)) {
			best = s
		}
	}
	if best != nil {
		info.SetName = best.name
		info.SetCode = best.code
		return
	}

	if m := setCodeRegex.FindString(upper); m != "" {
		info.SetCode = strings.ToLower(m)
		return
	}

	if info.TotalCards != "" {
		total := strings.TrimLeft(info.TotalCards, "0")
		if code, ok := setTotals[total]; ok {
			info.SetCode = code
		}
	}
}

func parseAttacks(lines []string, nameLine int) []models.Attack {
	var attacks []models.Attack
	for i, line := range lines {
		if i == nameLine {
			continue
		}
		m := attackLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if hasSkipWord(name) {
			continue
		}
		attacks = append(attacks, models.Attack{Name: name, Damage: m[2]})
	}
	return attacks
}

func hasSkipWord(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range attackSkipWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
