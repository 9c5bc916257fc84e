package lexicon

// DefaultSpecs returns the built-in category table.
// Discrimination uses neutral identity terms as placeholders for real slurs.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Name: "severe_toxic",
			Terms: []string{
				"kill", "die", "suicide", "murder", "hurt you", "go die", "worthless",
				"no one likes you", "nobody loves you", "should die", "kill yourself",
				"end your life", "jump off", "hang yourself", "shoot yourself",
				"better off dead", "waste of life", "waste of space", "die slowly",
			},
			Weight: 0.9,
			Color:  "#d32f2f",
		},
		{
			Name: "harassment",
			Terms: []string{
				"stupid", "idiot", "dumb", "moron", "retard", "imbecile", "fool",
				"ignorant", "brainless", "mindless", "unintelligent", "slow",
			},
			Weight: 0.6,
			Color:  "#f44336",
		},
		{
			Name: "body_shaming",
			Terms: []string{
				"fat", "obese", "skinny", "anorexic", "bulimic", "ugly", "hideous",
				"disgusting", "gross", "repulsive", "deformed", "pig", "cow", "whale",
				"flat chested", "no boobs", "no butt", "man boobs", "beer belly",
			},
			Weight: 0.7,
			Color:  "#ff6b6b",
		},
		{
			Name: "insults",
			Terms: []string{
				"hate", "suck", "awful", "terrible", "bad", "worst", "pathetic", "loser",
				"failure", "joke", "clown", "jerk", "asshole", "bastard", "bitch",
				"douche", "jackass", "dipstick", "knucklehead",
			},
			Weight: 0.5,
			Color:  "#ff9800",
		},
		{
			Name: "hate_speech",
			Patterns: []string{
				`\bhate you\b`,
				`\bi hate\b`,
				`\byou suck\b`,
				`\byou're (stupid|dumb|ugly|fat|idiot)\b`,
				`\byou are (stupid|dumb|ugly|fat|idiot)\b`,
				`\bfuck you\b`,
				`\bstfu\b`,
				`\bshut up\b`,
			},
			Weight: 0.6,
			Color:  "#ff5722",
		},
		{
			Name: "discrimination",
			Terms: []string{
				"black", "white", "asian", "chinese", "indian", "muslim", "christian",
				"jewish", "hindu", "gay", "lesbian", "trans", "homosexual", "queer",
				"immigrant", "refugee", "foreigner",
			},
			Weight: 0.8,
			Color:  "#9c27b0",
		},
		{
			Name: "sexual_harassment",
			Terms: []string{
				"sexy", "hot", "slut", "whore", "babe", "boobs", "tits", "ass", "porn",
				"nude", "naked", "strip", "cam girl", "onlyfans", "send nudes",
				"show boobs", "show body",
			},
			Weight: 0.7,
			Color:  "#e91e63",
		},
		{
			Name: "threats",
			Terms: []string{
				"beat", "hit", "punch", "slap", "fight", "attack", "hurt", "harm",
				"break your", "smash your", "destroy your", "ruin your", "find you",
				"get you", "come after", "track you down",
			},
			Weight: 0.8,
			Color:  "#c2185b",
		},
		{
			Name: "spam",
			Terms: []string{
				"subscribe", "follow me", "like my", "check my channel", "click link",
				"bit.ly", "tinyurl", "earn money", "free gift", "win prize", "lottery",
				"casino", "bet now",
			},
			Weight: 0.3,
			Color:  "#757575",
		},
		{
			Name: "profanity",
			Terms: []string{
				"damn", "hell", "crap", "piss", "shit", "fuck", "screw", "bloody",
				"arse", "bugger", "bollocks",
			},
			Weight: 0.4,
			Color:  "#ffb74d",
		},
	}
}

// Default builds the built-in lexicon.
func Default() (*Lexicon, error) {
	return New(DefaultSpecs())
}

// MustDefault builds the built-in lexicon and panics if it is malformed.
// It is meant for process start, where an invalid table must abort.
func MustDefault() *Lexicon {
	l, err := Default()
	if err != nil {
		panic(err)
	}
	return l
}
