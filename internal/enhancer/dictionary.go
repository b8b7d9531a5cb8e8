package enhancer

// DefaultDictionary is the base English word list the enhancer spell-
// corrects and run-on-splits against when no caller-supplied dictionary
// is available. It is deliberately small: common function words and the
// rulebook vocabulary that recurs across every supported game.
// Correction does not require exhaustive coverage, only enough to catch
// OCR run-ons and digraph confusables in prose.
var DefaultDictionary = []string{
	"a", "about", "above", "across", "after", "again", "against", "all",
	"also", "always", "among", "an", "and", "another", "any", "are",
	"area", "armor", "around", "as", "at", "attack", "back", "base",
	"before", "begin", "begins", "below", "between", "book", "both",
	"but", "by", "can", "cannot", "character", "check", "choose",
	"class", "combat", "could", "creature", "damage", "description",
	"die", "dice", "different", "do", "does", "down", "dungeon", "each",
	"effect", "either", "else", "end", "equal", "every", "example",
	"extra", "first", "for", "from", "game", "gain", "gm", "good",
	"greater", "has", "have", "he", "health", "her", "here", "hers",
	"him", "his", "hit", "how", "if", "in", "into", "is", "it", "item",
	"its", "keeper", "know", "least", "less", "level", "like", "list",
	"long", "magic", "make", "many", "may", "more", "most", "much",
	"must", "my", "new", "next", "no", "not", "now", "of", "off", "on",
	"once", "one", "only", "or", "other", "over", "page", "part",
	"penalty", "per", "player", "point", "points", "proficiency", "race",
	"range", "result", "roll", "rolls", "round", "rule", "rules", "same",
	"save", "saving", "section", "she", "should", "sign", "since", "skill",
	"slot", "so", "some", "spell", "spent", "stat", "still", "such",
	"table", "take", "target", "than", "that", "the", "their", "them",
	"then", "there", "these", "they", "this", "those", "through",
	"throw", "time", "to", "total", "turn", "type", "under", "up", "upon",
	"use", "used", "using", "value", "very", "was", "we", "weapon",
	"when", "where", "whether", "which", "while", "who", "will", "with",
	"within", "without", "you", "your",
}
