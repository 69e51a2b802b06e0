package debate

type labelSet struct {
	debateBegun   string
	roundBegins   string
	roundScores   string
	judgingBegins string
	paused        string
	streamFailed  string
	genericError  string
}

var labels = map[string]labelSet{
	"en": {
		debateBegun:   "Debate on \"%s\" has begun!",
		roundBegins:   "Round %d begins!",
		roundScores:   "Round %d Scores - Affirmative: %.1f, Negative: %.1f",
		judgingBegins: "The debate has concluded. Judges will now provide their feedback.",
		paused:        "Debate paused at round %d",
		streamFailed:  "Connection to the debate stream failed: %v",
		genericError:  "An error occurred during streaming",
	},
	"zh": {
		debateBegun:   "关于“%s”的辩论开始了！",
		roundBegins:   "第%d回合开始！",
		roundScores:   "第%d回合评分 - 正方: %.1f, 反方: %.1f",
		judgingBegins: "辩论已结束，评委将进行点评。",
		paused:        "辩论已在第%d回合暂停",
		streamFailed:  "辩论流连接失败: %v",
		genericError:  "流传输过程中发生错误",
	},
}

func labelsFor(language string) labelSet {
	if l, ok := labels[language]; ok {
		return l
	}
	return labels["en"]
}

// SupportedLanguage reports whether announcements exist for language.
func SupportedLanguage(language string) bool {
	_, ok := labels[language]
	return ok
}
