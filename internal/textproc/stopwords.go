package textproc

// StopWords is the process-wide read-only stop-word set used by
// ExtractSemanticKeywords to drop articles, prepositions, pronouns,
// common verbs, contractions, and generic web-chrome words (spec §4.3,
// "shared resources" in §5). This is the core set; operators extending it
// for a specific corpus should merge additional entries at startup rather
// than mutating this map at runtime, since it is read concurrently by
// every import worker.
var StopWords = buildStopWords()

func buildStopWords() map[string]bool {
	words := []string{
		// articles, conjunctions, determiners
		"a", "an", "the", "and", "or", "but", "nor", "so", "yet", "both",
		"either", "neither", "each", "every", "all", "any", "some", "no",
		"few", "many", "much", "more", "most", "other", "another", "such",
		"same", "own", "this", "that", "these", "those",

		// pronouns
		"i", "me", "my", "mine", "myself", "we", "us", "our", "ours",
		"ourselves", "you", "your", "yours", "yourself", "yourselves",
		"he", "him", "his", "himself", "she", "her", "hers", "herself",
		"it", "its", "itself", "they", "them", "their", "theirs",
		"themselves", "who", "whom", "whose", "which", "what", "whatever",
		"whoever", "whichever",

		// prepositions
		"about", "above", "across", "after", "against", "along", "amid",
		"among", "around", "at", "before", "behind", "below", "beneath",
		"beside", "besides", "between", "beyond", "by", "concerning",
		"despite", "down", "during", "except", "for", "from", "in",
		"inside", "into", "like", "near", "of", "off", "on", "onto",
		"out", "outside", "over", "past", "regarding", "since", "through",
		"throughout", "to", "toward", "towards", "under", "underneath",
		"until", "unto", "up", "upon", "with", "within", "without",

		// common verbs / auxiliaries
		"is", "am", "are", "was", "were", "be", "been", "being", "have",
		"has", "had", "having", "do", "does", "did", "doing", "will",
		"would", "shall", "should", "can", "could", "may", "might",
		"must", "let", "get", "got", "getting", "go", "goes", "going",
		"went", "gone", "make", "makes", "made", "making", "say", "says",
		"said", "saying", "see", "sees", "saw", "seeing", "seen", "know",
		"knows", "knew", "knowing", "known", "take", "takes", "took",
		"taking", "taken", "come", "comes", "came", "coming", "want",
		"wants", "wanted", "use", "uses", "used", "using", "find",
		"finds", "found", "finding", "give", "gives", "gave", "giving",
		"given", "tell", "tells", "told", "telling", "ask", "asks",
		"asked", "asking", "work", "works", "worked", "working", "seem",
		"seems", "seemed", "feel", "feels", "felt", "feeling", "try",
		"tries", "tried", "trying", "leave", "leaves", "left", "leaving",
		"call", "calls", "called", "calling", "need", "needs", "needed",
		"needing",

		// conjunction/adverb filler
		"when", "where", "why", "how", "here", "there", "then", "than",
		"as", "if", "because", "although", "though", "while", "whereas",
		"not", "only", "just", "also", "very", "too", "still", "even",
		"again", "further", "once", "now", "already", "always", "never",
		"ever", "often", "sometimes", "usually", "really", "quite",
		"rather", "almost", "enough", "instead", "indeed", "however",
		"therefore", "thus", "hence", "otherwise", "meanwhile",

		// numbers/quantifiers as words
		"one", "two", "three", "first", "second", "third", "last", "next",
		"new", "old", "good", "bad", "big", "small", "long", "short",

		// contractions (tokenizer splits on apostrophe, listed both forms)
		"isn", "aren", "wasn", "weren", "hasn", "haven", "hadn", "doesn",
		"don", "didn", "won", "wouldn", "shan", "shouldn", "can't",
		"couldn", "mustn", "ll", "re", "ve", "nt", "d", "m", "s", "t",

		// web-chrome and page-boilerplate words
		"click", "here", "home", "page", "site", "website", "link",
		"links", "menu", "navigation", "nav", "search", "login", "signup",
		"sign", "register", "account", "profile", "settings", "privacy",
		"policy", "terms", "service", "cookie", "cookies", "subscribe",
		"newsletter", "share", "follow", "comment", "comments", "post",
		"posts", "read", "more", "view", "views", "loading", "please",
		"copyright", "reserved", "rights", "skip", "content", "main",
		"footer", "header", "sidebar", "toggle", "close", "open", "back",
		"top", "bottom", "advertisement", "sponsored", "related", "tags",
		"category", "categories", "archive", "archives", "feed", "rss",
	}

	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
