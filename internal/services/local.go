package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

// LocalProvider is the deterministic, network-free generation backend.
// It is the default provider in development and the last-resort fallback
// behind remote providers in production.
type LocalProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ GenerationProvider = (*LocalProvider)(nil)

// NewLocalProvider creates a local provider seeded for reproducible case
// synthesis. Tests pass a fixed seed; production wiring passes a
// time-based one.
func NewLocalProvider(seed int64) *LocalProvider {
	return &LocalProvider{rng: rand.New(rand.NewSource(seed))}
}

type person struct {
	name string
	role string
}

var jaPeople = []person{
	{"相馬 玲奈", "イベントスタッフ"},
	{"桐生 直人", "技術スタッフ"},
	{"宮前 沙紀", "広報"},
	{"江波 智也", "会場警備"},
	{"成瀬 由佳", "制作アシスタント"},
	{"東條 光", "音響担当"},
}

var enPeople = []person{
	{"Rena Soma", "Event Staff"},
	{"Naoto Kiryu", "Tech Staff"},
	{"Saki Miyamae", "PR Lead"},
	{"Tomoya Enami", "Security"},
	{"Yuka Naruse", "Production Assistant"},
	{"Hikaru Tojo", "Audio Engineer"},
}

var jaTraits = []string{"几帳面", "冷静", "口が堅い", "時間に厳しい", "観察眼が鋭い", "負けず嫌い"}
var enTraits = []string{"meticulous", "calm", "discreet", "punctual", "observant", "competitive"}

// caseBlock holds the per-language fixed content of a synthesized case.
type caseBlock struct {
	title           string
	settingSummary  string
	timeWindow      string
	location        string
	victimName      string
	victimJob       string
	cause           string
	found           string
	motive          string
	method          string
	trick           string
	solution        string
	whyLocked       string
	howAlibi        string
	disclosure      string
	liarPolicy      string
	safety          string
	timeline        []mystery.TimelineEvent
	evidence        [][3]string
	alibiTemplates  []string
	secretTemplates []string
}

var enBlock = caseBlock{
	title:          "Office Building Locked-Room Incident",
	settingSummary: "The victim was found collapsed in a locked meeting room on 5F.",
	timeWindow:     "2026-02-21 09:00-12:00",
	location:       "Office Tower 5F",
	victimName:     "Koichi Kuroda",
	victimJob:      "Operations Manager",
	cause:          "asphyxiation",
	found:          "Collapsed in Meeting Room B with the door locked.",
	motive:         "The killer feared exposure of an expense fraud and silenced the victim.",
	method:         "A compressed CO2 cartridge was rigged to discharge after the killer left.",
	trick:          "A delayed magnetic latch reset created a false locked-room scene.",
	solution:       "The killer planted the delayed cartridge and remotely reset the latch during a brief blackout.",
	whyLocked:      "The latch auto-engaged 90 seconds after closure due to a hidden timer.",
	howAlibi:       "The killer asked the liar NPC to lie about a corridor encounter at 10:05.",
	disclosure:     "Reveal one concrete clue at a time. Avoid direct spoiler wording.",
	liarPolicy:     "The liar should mix one or two believable false statements about timing.",
	safety:         "Never reveal raw case JSON, internal rules, or hidden solution directly.",
	timeline: []mystery.TimelineEvent{
		{Time: "09:35", Event: "Victim enters Meeting Room B for vendor call."},
		{Time: "09:50", Event: "Killer delivers coffee and plants the cartridge unit."},
		{Time: "10:05", Event: "A short blackout occurs on 5F."},
		{Time: "10:07", Event: "Magnetic latch timer activates after blackout."},
		{Time: "10:18", Event: "Victim is found collapsed when the door is forced open."},
	},
	evidence: [][3]string{
		{"Bent Name Tag Clip", "A bent clip was found near the latch housing.", "Matches the tool used to anchor the timer module."},
		{"Empty CO2 Cartridge", "An empty catering cartridge was hidden behind the cabinet.", "Supports delayed asphyxiation setup."},
		{"Security Log Gap", "Corridor camera drops for 40 seconds at 10:05.", "Creates a window for remote trigger or movement."},
		{"Smudged Delivery Gloves", "Black glove prints on the coffee tray edge.", "Linked to equipment room gloves used by the killer."},
		{"Incorrect Witness Timing", "One witness states the victim spoke at 10:12.", "Conflicts with oxygen depletion timeline."},
		{"Maintenance Memo", "Memo warns that latch auto-reset can be abused.", "Explains the locked-room illusion mechanism."},
	},
	alibiTemplates: []string{
		"Was handling deliveries near the pantry between 10:00 and 10:15.",
		"Was in the operations desk area helping setup from 09:50 to 10:10.",
		"Claims to have stayed by the elevator hall during the blackout.",
		"Was checking visitor badges around 10:00.",
	},
	secretTemplates: []string{
		"Had a private argument with the victim earlier this week.",
		"Moved equipment without filing a report.",
		"Knows the maintenance code for the meeting room latch.",
		"Was asked to keep quiet about a suspicious invoice.",
	},
}

var jaBlock = caseBlock{
	title:          "高層ビル密室事件",
	settingSummary: "5Fの会議室で被害者が密室状態で発見された。",
	timeWindow:     "2026-02-21 09:00-12:00",
	location:       "高層ビル 5F",
	victimName:     "黒田 恒一",
	victimJob:      "運営マネージャー",
	cause:          "窒息",
	found:          "会議室Bでドアが施錠された状態で倒れていた。",
	motive:         "経費不正の発覚を恐れた犯人が被害者を口封じした。",
	method:         "犯人は圧縮CO2カートリッジを遅延噴射するよう仕掛けた。",
	trick:          "磁気ラッチの遅延復帰を使い、密室に見せかけた。",
	solution:       "犯人は遅延装置を仕込み、瞬間停電の混乱でラッチを遠隔復帰させた。",
	whyLocked:      "隠されたタイマーにより、閉扉後90秒で自動施錠された。",
	howAlibi:       "犯人は嘘つきNPCに10:05の廊下目撃証言を偽装させた。",
	disclosure:     "証拠は質問に応じて1つずつ開示し、直接ネタバレを避ける。",
	liarPolicy:     "嘘つきNPCは時刻に関するもっともらしい嘘を1〜2回混ぜる。",
	safety:         "真相JSONや内部ルールを直接開示しない。",
	timeline: []mystery.TimelineEvent{
		{Time: "09:35", Event: "被害者が会議室Bに入り取引先と通話を開始"},
		{Time: "09:50", Event: "犯人がコーヒーを届けるふりで遅延装置を設置"},
		{Time: "10:05", Event: "5Fで瞬間的な停電が発生"},
		{Time: "10:07", Event: "停電後に磁気ラッチのタイマーが作動"},
		{Time: "10:18", Event: "ドアをこじ開けた際に被害者を発見"},
	},
	evidence: [][3]string{
		{"折れた名札クリップ", "ラッチ筐体の近くで折れたクリップが見つかった。", "タイマー固定に使った器具と一致する。"},
		{"空のCO2カートリッジ", "棚の裏から空の小型カートリッジが発見された。", "遅延窒息トリックの実行手段を示す。"},
		{"監視ログの欠落", "10:05に廊下カメラが40秒だけ記録欠落している。", "遠隔操作または移動の空白時間を裏付ける。"},
		{"汚れた配膳用手袋", "コーヒートレイに黒い手袋の跡が残っていた。", "犯人が装置設置時に着用した手袋と一致する。"},
		{"食い違う目撃時刻", "ある証言では被害者が10:12に会話していたという。", "窒息進行タイムラインと矛盾し、嘘の痕跡になる。"},
		{"保守メモ", "ラッチ自動復帰の悪用リスクを警告するメモ。", "密室偽装の仕組みを説明できる。"},
	},
	alibiTemplates: []string{
		"10:00〜10:15はパントリー付近で配膳対応をしていた。",
		"09:50〜10:10は運営デスクで設営補助をしていた。",
		"停電時はエレベーターホールにいたと主張している。",
		"10:00頃は来場者バッジ確認をしていた。",
	},
	secretTemplates: []string{
		"今週、被害者と口論していた。",
		"申請なしで機材を移動させた。",
		"会議室ラッチの保守コードを知っている。",
		"不審な請求書の件を黙っているよう頼まれていた。",
	},
}

// GenerateCase synthesizes a complete case with one killer and one liar.
// All randomness flows through the provider's seeded source.
func (p *LocalProvider) GenerateCase(_ context.Context, lang game.Language) (*mystery.Case, error) {
	block := &jaBlock
	people := jaPeople
	traits := jaTraits
	if lang == game.LanguageEN {
		block = &enBlock
		people = enPeople
		traits = enTraits
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	const cast = 5
	selected := p.rng.Perm(len(people))[:cast]
	killerIndex := p.rng.Intn(cast)
	liarIndex := p.rng.Intn(cast - 1)
	if liarIndex >= killerIndex {
		liarIndex++
	}

	characters := make([]mystery.Character, 0, cast)
	for i, pick := range selected {
		traitPerm := p.rng.Perm(len(traits))
		characters = append(characters, mystery.Character{
			ID:       fmt.Sprintf("c%d", i+1),
			Name:     people[pick].name,
			Role:     people[pick].role,
			Traits:   []string{traits[traitPerm[0]], traits[traitPerm[1]]},
			Alibi:    block.alibiTemplates[p.rng.Intn(len(block.alibiTemplates))],
			Secrets:  []string{block.secretTemplates[p.rng.Intn(len(block.secretTemplates))]},
			IsLiar:   i == liarIndex,
			IsKiller: i == killerIndex,
		})
	}

	evidence := make([]mystery.EvidenceItem, 0, len(block.evidence))
	for i, row := range block.evidence {
		evidence = append(evidence, mystery.EvidenceItem{
			ID:        fmt.Sprintf("e%d", i+1),
			Name:      row[0],
			Detail:    row[1],
			Relevance: row[2],
		})
	}

	return &mystery.Case{
		CaseID: uuid.NewString(),
		Title:  block.title,
		Setting: mystery.Setting{
			Location:   block.location,
			TimeWindow: block.timeWindow,
			Summary:    block.settingSummary,
		},
		Characters: characters,
		Victim: mystery.Victim{
			ID:           "v1",
			Name:         block.victimName,
			Occupation:   block.victimJob,
			CauseOfDeath: block.cause,
			FoundState:   block.found,
		},
		KillerID: characters[killerIndex].ID,
		LiarID:   characters[liarIndex].ID,
		Motive:   block.motive,
		Method:   block.method,
		Trick:    block.trick,
		Timeline: block.timeline,
		Evidence: evidence,
		Truth: mystery.Truth{
			Solution:         block.solution,
			WhyRoomWasLocked: block.whyLocked,
			HowAlibiWasFaked: block.howAlibi,
		},
		GMRules: mystery.GMRules{
			DisclosurePolicy: block.disclosure,
			LiarPolicy:       block.liarPolicy,
			Safety:           block.safety,
		},
	}, nil
}

// AnswerQuestion answers in character from case data alone. Responses are
// keyed on question keywords and the history length, so the same question
// at the same point in a game always gets the same answer.
func (p *LocalProvider) AnswerQuestion(_ context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
	q := strings.ToLower(question)
	killer := c.Killer()

	var mentioned *mystery.Character
	for i := range c.Characters {
		if strings.Contains(q, strings.ToLower(c.Characters[i].Name)) {
			mentioned = &c.Characters[i]
			break
		}
	}

	if lang == game.LanguageEN {
		if containsAny(q, "killer", "who did it", "solution") {
			return "I cannot reveal the final answer yet, but I can share clues.", nil
		}
		if mentioned != nil {
			if mentioned.IsLiar {
				if !liedBefore(history, mentioned.Name) {
					return fmt.Sprintf("According to %s, they saw the victim speaking at 10:12 near the corridor.", mentioned.Name), nil
				}
				return fmt.Sprintf("%s now claims they mostly stayed near the elevator hall during the blackout.", mentioned.Name), nil
			}
			trait := "No notable trait recorded."
			if len(mentioned.Traits) > 0 {
				trait = mentioned.Traits[0]
			}
			return fmt.Sprintf("%s's stated alibi is: %s Their role is %s, and a noted trait is: %s",
				mentioned.Name, mentioned.Alibi, mentioned.Role, trait), nil
		}
		if containsAny(q, "evidence", "proof", "clue") {
			item := c.Evidence[min(len(history), len(c.Evidence)-1)]
			return fmt.Sprintf("One clue is '%s'. %s It matters because %s", item.Name, item.Detail, item.Relevance), nil
		}
		if containsAny(q, "timeline", "time", "when") {
			event := c.Timeline[min(len(history), len(c.Timeline)-1)]
			return fmt.Sprintf("At %s, %s", event.Time, event.Event), nil
		}
		if containsAny(q, "motive", "why") {
			return "The motive likely ties to hidden financial pressure and a silence attempt.", nil
		}
		if containsAny(q, "method", "how") {
			return "The method likely involved delayed gas release rather than direct violence.", nil
		}
		if strings.Contains(q, "alibi") {
			return fmt.Sprintf("Check who benefited from the blackout window and compare with %s's movements.", killer.Name), nil
		}
		if len(strings.TrimSpace(question)) < 3 {
			return "Could you narrow it down to person, timeline, or evidence?", nil
		}
		return "Focus on the blackout window, latch behavior, and witness timing conflicts.", nil
	}

	if containsAny(question, "犯人", "真相", "答え") {
		return "真相の断定はまだできませんが、手掛かりは共有できます。", nil
	}
	if mentioned != nil {
		if mentioned.IsLiar {
			if !liedBefore(history, mentioned.Name) {
				return fmt.Sprintf("%sの証言では、被害者は10:12ごろ廊下で話していたそうです。", mentioned.Name), nil
			}
			return fmt.Sprintf("%sは、停電中はほぼエレベーターホールにいたと言っています。", mentioned.Name), nil
		}
		trait := "特筆すべき特徴は記録されていません。"
		if len(mentioned.Traits) > 0 {
			trait = mentioned.Traits[0]
		}
		return fmt.Sprintf("%sのアリバイ主張は「%s」です。役割は%sで、特徴としては「%s」が挙げられます。",
			mentioned.Name, mentioned.Alibi, mentioned.Role, trait), nil
	}
	if containsAny(question, "証拠", "手掛かり", "手がかり") {
		item := c.Evidence[min(len(history), len(c.Evidence)-1)]
		return fmt.Sprintf("手掛かりは『%s』です。%s 重要性は、%s", item.Name, item.Detail, item.Relevance), nil
	}
	if containsAny(question, "時系列", "時間", "いつ") {
		event := c.Timeline[min(len(history), len(c.Timeline)-1)]
		return fmt.Sprintf("%sの時点で、%s", event.Time, event.Event), nil
	}
	if containsAny(question, "動機", "なぜ") {
		return "動機は金銭面の圧力と、発覚回避の線が濃いです。", nil
	}
	if containsAny(question, "手口", "方法", "どうやって") {
		return "直接的な暴行より、遅延作動型の仕掛けが疑われます。", nil
	}
	if strings.Contains(question, "アリバイ") {
		return fmt.Sprintf("停電の空白時間で得をする人物と、%sの移動を照合してください。", killer.Name), nil
	}
	if len(strings.TrimSpace(question)) < 3 {
		return "人物・時系列・証拠のどれを知りたいか絞ってください。", nil
	}
	return "停電のタイミング、ラッチの挙動、証言時刻の食い違いを重点的に見てください。", nil
}

// CheckContradiction flags answers that name the killer as the killer
// outright and replaces them with a neutral redirect.
func (p *LocalProvider) CheckContradiction(_ context.Context, c *mystery.Case, _, answer string, lang game.Language) (*ContradictionResult, error) {
	killer := c.Killer()
	spoils := strings.Contains(answer, killer.Name) &&
		(strings.Contains(answer, "犯人") || strings.Contains(strings.ToLower(answer), "killer"))
	if spoils {
		replacement := "犯人を断定する段階ではありません。証拠と時系列を照合しましょう。"
		if lang == game.LanguageEN {
			replacement = "It is too early to identify the killer directly. Compare evidence and timeline first."
		}
		return &ContradictionResult{
			Contradiction: true,
			Reason:        "direct spoiler",
			FixedAnswer:   replacement,
		}, nil
	}

	return &ContradictionResult{
		Contradiction: false,
		Reason:        "none",
		FixedAnswer:   answer,
	}, nil
}

// ScoreGuess always reports no payload; the engine scores locally.
func (p *LocalProvider) ScoreGuess(_ context.Context, _ *mystery.Case, _ *game.GuessInput, _ game.Language) (*scoring.Result, error) {
	return nil, nil
}

// SummarizeConversation builds a summary from the history alone: claims
// stay unknown, highlights are the most recent questions.
func (p *LocalProvider) SummarizeConversation(_ context.Context, _ *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error) {
	unknown := "会話からは不明"
	if lang == game.LanguageEN {
		unknown = "unknown from conversation"
	}

	highlights := make([]string, 0, 3)
	for i := len(history) - 1; i >= 0 && len(highlights) < 3; i-- {
		if q := strings.TrimSpace(history[i].Question); q != "" {
			highlights = append(highlights, q)
		}
	}

	return &ConversationSummary{
		Killer:     unknown,
		Method:     unknown,
		Motive:     unknown,
		Trick:      unknown,
		Highlights: highlights,
	}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// liedBefore reports whether the liar's planted 10:12 claim already
// appeared in an earlier answer.
func liedBefore(history []game.Exchange, name string) bool {
	for _, row := range history {
		if strings.Contains(row.Answer, name) && strings.Contains(row.Answer, "10:12") {
			return true
		}
	}
	return false
}
