package cluster

// Stop-word lists cover Dutch and English: secondary and international
// sources do not all publish in the primary language, so both lists are
// always applied.

var dutchStopwords = []string{
	"aan", "achter", "alle", "alleen", "allen", "alles", "altijd", "andere",
	"anders", "beide", "bijna", "binnen", "boven", "buiten", "daar", "daarna",
	"daarom", "deze", "dezelfde", "dit", "doch", "doen", "door", "echter",
	"een", "eens", "eerst", "elke", "enige", "erg", "geen", "geweest",
	"haar", "had", "hadden", "heb", "hebben", "heeft", "hem", "het", "hier",
	"hij", "hoe", "hun", "iemand", "iets", "jullie", "kan", "komen", "kon",
	"konden", "kunnen", "laat", "later", "maar", "meer", "meest", "met",
	"mijn", "moet", "moeten", "naar", "nadat", "niet", "niets", "nog", "nooit",
	"omdat", "onder", "ons", "onze", "ook", "over", "reeds", "sinds", "sommige",
	"steeds", "tegen", "terwijl", "tijdens", "toch", "toen", "tussen", "uit",
	"vaak", "van", "vanaf", "veel", "voor", "voordat", "waar", "waarom",
	"wanneer", "want", "waren", "was", "wat", "weer", "welke", "werd",
	"werden", "wie", "wij", "worden", "wordt", "zal", "zei", "zelf", "zich",
	"zij", "zijn", "zonder", "zou", "zouden", "zulke", "zullen",
}

var englishStopwords = []string{
	"about", "above", "after", "again", "against", "all", "and", "any",
	"are", "because", "been", "before", "being", "below", "between", "both",
	"but", "can", "cannot", "could", "did", "does", "doing", "down",
	"during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "into", "its", "itself", "just", "more", "most", "not", "now",
	"off", "once", "only", "other", "our", "ours", "ourselves", "out",
	"over", "own", "said", "same", "she", "should", "some", "such", "than",
	"that", "the", "their", "theirs", "them", "themselves", "then", "there",
	"these", "they", "this", "those", "through", "too", "under", "until",
	"very", "was", "were", "what", "when", "where", "which", "while", "who",
	"whom", "why", "will", "with", "would", "you", "your", "yours",
	"yourself", "yourselves",
}

var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	set := make(map[string]struct{}, len(dutchStopwords)+len(englishStopwords))
	for _, w := range dutchStopwords {
		set[w] = struct{}{}
	}
	for _, w := range englishStopwords {
		set[w] = struct{}{}
	}
	return set
}
