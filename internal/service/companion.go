package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

const (
	// Metadata key carrying a pending ambiguous intent on a follow-up turn.
	pendingIntentKey = "pending_intent"
	// How many retrieved passages ground a question answer.
	answerTopK = 5
)

// TurnResult is what one conversational turn produces for the caller.
type TurnResult struct {
	Reply            string `json:"reply"`
	NeedsFollowUp    bool   `json:"needs_follow_up"`
	FollowUpQuestion string `json:"follow_up_question,omitempty"`

	// pendingJSON carries the unresolved intent to the persisted system turn.
	pendingJSON string
}

// recomputeQueue is the hook the controller uses to schedule background
// twin/risk recomputation after a turn.
type recomputeQueue interface {
	Enqueue(userID uuid.UUID) bool
}

// CompanionService is the orchestration controller: one entry point per user
// turn, routing between translation, disambiguation, intent application, and
// question answering. It owns the conversational guarantees - the user turn is
// always persisted, and the caller always gets a reply.
type CompanionService struct {
	userStore    domain.UserStore
	medStore     domain.MedicationStore
	mealStore    domain.MealStore
	symptomStore domain.SymptomStore
	actStore     domain.ActivityStore
	baseStore    domain.BaselineStore
	convStore    domain.ConversationStore
	memStore     domain.VectorMemoryStore

	parser    *ParserService
	resolver  *ResolverService
	llm       domain.LLMClient
	embedder  domain.EmbeddingClient
	recompute recomputeQueue

	defaultLanguage string
	logger          *zap.Logger
}

func NewCompanionService(
	us domain.UserStore,
	ms domain.MedicationStore,
	meals domain.MealStore,
	ss domain.SymptomStore,
	as domain.ActivityStore,
	bs domain.BaselineStore,
	cs domain.ConversationStore,
	vs domain.VectorMemoryStore,
	parser *ParserService,
	resolver *ResolverService,
	llm domain.LLMClient,
	embedder domain.EmbeddingClient,
	recompute recomputeQueue,
	defaultLanguage string,
	logger *zap.Logger,
) *CompanionService {
	return &CompanionService{
		userStore:       us,
		medStore:        ms,
		mealStore:       meals,
		symptomStore:    ss,
		actStore:        as,
		baseStore:       bs,
		convStore:       cs,
		memStore:        vs,
		parser:          parser,
		resolver:        resolver,
		llm:             llm,
		embedder:        embedder,
		recompute:       recompute,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

var fallbackReplies = []string{
	"I didn't quite catch that. Could you say it another way?",
	"Sorry, I lost my train of thought there. Could you repeat that?",
	"Hmm, I couldn't make sense of that one. Could you try rephrasing?",
}

var offTopicReplies = []string{
	"I'm best at helping with your meals, medications, and how you're feeling. Is there anything like that I can help with?",
	"That's outside what I can help with, but I'm always here for your health routine. How has your day been?",
	"I'll have to pass on that one. Shall we check in on your medications or meals instead?",
}

// HandleTurn processes one user utterance end to end. The user turn is
// persisted before anything else; any failure after that, including a panic,
// degrades to a fallback reply. The returned error is always nil - the caller
// always gets a conversational result.
func (s *CompanionService) HandleTurn(ctx context.Context, user *domain.User, text string) (result *TurnResult, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &TurnResult{Reply: pick(fallbackReplies)}, nil
	}

	if appendErr := s.appendTurn(ctx, user.ID, domain.SenderUser, text, nil); appendErr != nil {
		// Transcript storage is down; conversational state is unreachable, so
		// degrade to a fallback reply rather than surfacing the outage.
		s.logger.Error("persist user turn failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(appendErr),
		)
		return &TurnResult{Reply: pick(fallbackReplies)}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("turn handling panicked",
				zap.String("user_id", user.ID.String()),
				zap.Any("panic", r),
			)
			result = &TurnResult{Reply: pick(fallbackReplies)}
			err = nil
			s.persistReply(ctx, user.ID, result)
		}
	}()

	result = s.route(ctx, user, text)
	s.persistReply(ctx, user.ID, result)
	return result, nil
}

func (s *CompanionService) route(ctx context.Context, user *domain.User, text string) *TurnResult {
	if language, ok := translationRequest(text, user.PreferredLanguage); ok {
		return s.handleTranslation(ctx, user, language)
	}

	if pending, ok := s.pendingIntent(ctx, user.ID); ok {
		return s.handleFollowUp(ctx, user, pending, text)
	}

	if !s.onTopic(ctx, text) {
		return &TurnResult{Reply: pick(offTopicReplies)}
	}

	intent := s.parser.Parse(ctx, user, text)

	if intent.Type.Mutating() && intent.Ambiguous {
		question, _ := domain.FollowUpQuestion(intent.Type)
		raw, _ := json.Marshal(intent)
		s.logger.Info("asking follow-up",
			zap.String("user_id", user.ID.String()),
			zap.String("intent", string(intent.Type)),
			zap.String("reason", intent.AmbiguityReason),
		)
		return &TurnResult{
			Reply:            question,
			NeedsFollowUp:    true,
			FollowUpQuestion: question,
			pendingJSON:      string(raw),
		}
	}

	if intent.Type.Mutating() {
		return s.applyIntent(ctx, user, intent, text)
	}

	return s.answerQuestion(ctx, user, text)
}

// handleTranslation re-renders the companion's previous reply in another
// language. With no previous reply there is nothing to translate, and no
// completion call is made.
func (s *CompanionService) handleTranslation(ctx context.Context, user *domain.User, language string) *TurnResult {
	last, err := s.convStore.LatestSystemTurn(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &TurnResult{Reply: "I haven't said anything yet that I could translate. Ask me something first!"}
		}
		s.logger.Warn("load previous reply failed", zap.Error(err))
		return &TurnResult{Reply: pick(fallbackReplies)}
	}

	translated, err := s.llm.Translate(ctx, last.Text, language)
	if err != nil {
		s.logger.Warn("translation failed", zap.String("language", language), zap.Error(err))
		return &TurnResult{Reply: "Sorry, I couldn't translate that right now."}
	}
	return &TurnResult{Reply: translated}
}

// handleFollowUp resolves a pending ambiguous intent against the user's
// clarifying answer. A resolution failure falls back to treating the answer as
// a fresh utterance rather than trapping the user in a clarification loop.
func (s *CompanionService) handleFollowUp(ctx context.Context, user *domain.User, pending domain.Intent, answer string) *TurnResult {
	res, err := s.resolver.Resolve(ctx, user, pending, answer)
	if err != nil {
		if errors.Is(err, ErrUnknownMedication) {
			// Keep the clarification open so the next answer retries it.
			name := strings.TrimPrefix(err.Error(), ErrUnknownMedication.Error()+": ")
			raw, _ := json.Marshal(pending)
			reply := fmt.Sprintf("I don't see %s in your medications. Which one did you mean?", name)
			return &TurnResult{
				Reply:            reply,
				NeedsFollowUp:    true,
				FollowUpQuestion: reply,
				pendingJSON:      string(raw),
			}
		}
		s.logger.Warn("resolution failed, treating answer as new utterance",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		if !s.onTopic(ctx, answer) {
			return &TurnResult{Reply: pick(offTopicReplies)}
		}
		intent := s.parser.Parse(ctx, user, answer)
		if intent.Type.Mutating() && !intent.Ambiguous {
			return s.applyIntent(ctx, user, intent, answer)
		}
		return s.answerQuestion(ctx, user, answer)
	}

	return s.applyIntent(ctx, user, res.Intent, answer)
}

// onTopic is the conversation gate. A short literal allowlist handles the
// obvious cases without a model call; everything else is classified by the
// model, failing open so a classifier outage never silences the companion.
func (s *CompanionService) onTopic(ctx context.Context, text string) bool {
	if allowlisted(text) {
		return true
	}
	onTopic, err := s.llm.ClassifyHealthTopic(ctx, text)
	if err != nil {
		s.logger.Warn("topic classification failed, allowing", zap.Error(err))
		return true
	}
	return onTopic
}

var allowlistTerms = []string{
	"hello", "hi ", "hey", "good morning", "good afternoon", "good evening",
	"good night", "thank", "bye",
	"meal", "breakfast", "lunch", "dinner", "snack", "ate", "eat", "food",
	"hungry", "drink", "water",
	"medication", "medicine", "pill", "dose", "tablet", "took", "take",
	"pain", "feel", "dizzy", "tired", "sleep", "slept", "headache", "ache",
	"walk", "exercise", "doctor", "nurse",
	"translate", "language",
}

func allowlisted(text string) bool {
	lower := " " + strings.ToLower(text) + " "
	for _, term := range allowlistTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// translationRequest detects "translate that" style utterances and picks the
// target language: an explicit "to X" wins, otherwise the user's preferred
// language.
func translationRequest(text, preferredLanguage string) (string, bool) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "translate") && !strings.Contains(lower, "say that in") {
		return "", false
	}

	for _, marker := range []string{" in ", " into ", " to "} {
		if idx := strings.LastIndex(lower, marker); idx >= 0 {
			language := strings.Trim(text[idx+len(marker):], " ?.!")
			if language != "" && !strings.EqualFold(language, "that") {
				return language, true
			}
		}
	}
	if preferredLanguage != "" {
		return preferredLanguage, true
	}
	return "English", true
}

func (s *CompanionService) pendingIntent(ctx context.Context, userID uuid.UUID) (domain.Intent, bool) {
	last, err := s.convStore.LatestSystemTurn(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("load latest system turn failed", zap.Error(err))
		}
		return domain.Intent{}, false
	}
	raw, ok := last.Metadata[pendingIntentKey]
	if !ok {
		return domain.Intent{}, false
	}
	var intent domain.Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		s.logger.Warn("corrupt pending intent, ignoring", zap.Error(err))
		return domain.Intent{}, false
	}
	return intent, true
}

// applyIntent writes the record for a clean mutating intent, remembers the
// event for retrieval, and schedules a recompute. The switch is exhaustive
// over mutating types.
func (s *CompanionService) applyIntent(ctx context.Context, user *domain.User, intent domain.Intent, utterance string) *TurnResult {
	now := time.Now().In(user.Location())

	reply, memory, err := s.applyMutation(ctx, user, intent, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if reply == "" {
				reply = pick(fallbackReplies)
			}
			return &TurnResult{Reply: reply}
		}
		s.logger.Error("apply intent failed",
			zap.String("user_id", user.ID.String()),
			zap.String("intent", string(intent.Type)),
			zap.Error(err),
		)
		return &TurnResult{Reply: pick(fallbackReplies)}
	}

	if memory != "" {
		s.remember(ctx, user.ID, memory)
	}
	if s.recompute != nil {
		if !s.recompute.Enqueue(user.ID) {
			s.logger.Warn("recompute queue full, skipping", zap.String("user_id", user.ID.String()))
		}
	}

	return &TurnResult{Reply: reply}
}

// applyMutation performs the store write for one mutating intent. On
// ErrNotFound the returned reply is a user-facing clarification, not an error
// message.
func (s *CompanionService) applyMutation(ctx context.Context, user *domain.User, intent domain.Intent, now time.Time) (reply, memory string, err error) {
	dateStr := now.Format("2006-01-02")

	switch intent.Type {
	case domain.IntentMedicationTaken:
		name := intent.Entities["medication"]
		med, err := s.medStore.GetByName(ctx, user.ID, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Sprintf("I don't see %s in your medications. Which one did you mean?", name), "", err
			}
			return "", "", err
		}
		if err := s.medStore.MarkTaken(ctx, user.ID, med.ID, now, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Sprintf("I don't have a dose of %s due right now - I may already have it marked as taken.", med.Name), "", err
			}
			return "", "", err
		}
		return fmt.Sprintf("Got it - I've marked %s as taken.", med.Name),
			fmt.Sprintf("%s: took %s at %s", dateStr, med.Name, now.Format("15:04")), nil

	case domain.IntentMedicationMissed:
		name := intent.Entities["medication"]
		med, err := s.medStore.GetByName(ctx, user.ID, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Sprintf("I don't see %s in your medications. Which one did you mean?", name), "", err
			}
			return "", "", err
		}
		return fmt.Sprintf("Thanks for telling me. I've noted that you missed %s.", med.Name),
			fmt.Sprintf("%s: missed a dose of %s", dateStr, med.Name), nil

	case domain.IntentMealLogged:
		mealType := domain.MealType(strings.ToLower(intent.Entities["meal_type"]))
		if !domain.ValidMealType(string(mealType)) {
			mealType = domain.MealSnack
		}
		meal := &domain.MealLog{
			UserID:      user.ID,
			MealType:    mealType,
			Description: intent.Entities["description"],
			LoggedAt:    now,
		}
		if err := s.mealStore.Create(ctx, meal); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("Lovely - %s logged.", mealType),
			fmt.Sprintf("%s: logged %s at %s", dateStr, mealType, now.Format("15:04")), nil

	case domain.IntentSymptomReported:
		name := intent.Entities["symptom"]
		if name == "" {
			name = intent.Entities["description"]
		}
		symptom := &domain.SymptomLog{
			UserID:   user.ID,
			Name:     strings.ToLower(name),
			Severity: parseSeverity(intent.Entities["severity"]),
			LoggedAt: now,
		}
		if err := s.symptomStore.Create(ctx, symptom); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("I'm sorry to hear that. I've noted the %s - please rest if you need to.", symptom.Name),
			fmt.Sprintf("%s: reported %s (severity %d)", dateStr, symptom.Name, symptom.Severity), nil

	case domain.IntentActivityStarted:
		name := intent.Entities["activity"]
		activity := &domain.ActivityLog{UserID: user.ID, Name: strings.ToLower(name), StartedAt: now}
		if err := s.actStore.Create(ctx, activity); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("Enjoy your %s! I'll note when you're back.", activity.Name),
			fmt.Sprintf("%s: started %s at %s", dateStr, activity.Name, now.Format("15:04")), nil

	case domain.IntentActivityEnded:
		name := strings.ToLower(intent.Entities["activity"])
		if err := s.actStore.End(ctx, user.ID, name, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Sprintf("I didn't have a %s in progress, but good to know you're back!", name), "", err
			}
			return "", "", err
		}
		return fmt.Sprintf("Welcome back from your %s!", name),
			fmt.Sprintf("%s: finished %s at %s", dateStr, name, now.Format("15:04")), nil

	case domain.IntentLocationUpdate:
		city := intent.Entities["city"]
		if city == "" {
			city = intent.Entities["location"]
		}
		if err := s.userStore.UpdateCity(ctx, user.ID, city); err != nil {
			return "", "", err
		}
		user.City = city
		return fmt.Sprintf("Noted - you're in %s now.", city),
			fmt.Sprintf("%s: location updated to %s", dateStr, city), nil
	}

	return pick(fallbackReplies), "", nil
}

// parseSeverity clamps a reported severity to 1..5, defaulting to 3 when
// absent or unparseable.
func parseSeverity(raw string) int {
	severity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 3
	}
	if severity < 1 {
		return 1
	}
	if severity > 5 {
		return 5
	}
	return severity
}

// remember embeds and stores a one-line event description for later retrieval.
// Best effort: losing a memory never fails the turn.
func (s *CompanionService) remember(ctx context.Context, userID uuid.UUID, content string) {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.logger.Warn("embed memory failed", zap.Error(err))
		return
	}
	memory := &domain.VectorMemory{
		UserID:    userID,
		Kind:      domain.MemoryKindHealthEvent,
		Content:   content,
		Embedding: embedding,
	}
	if err := s.memStore.Create(ctx, memory); err != nil {
		s.logger.Warn("store memory failed", zap.Error(err))
	}
}

// answerQuestion grounds the model on today's data plus retrieved memories and
// answers in the user's language.
func (s *CompanionService) answerQuestion(ctx context.Context, user *domain.User, question string) *TurnResult {
	snapshot := s.gatherSnapshot(ctx, user, question)

	language := user.PreferredLanguage
	if language == "" || strings.EqualFold(language, s.defaultLanguage) {
		language = ""
	}

	answer, err := s.llm.Answer(ctx, question, snapshot, language)
	if err != nil {
		s.logger.Warn("answer failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return &TurnResult{Reply: pick(fallbackReplies)}
	}
	return &TurnResult{Reply: answer}
}

// gatherSnapshot collects the day's records and the most relevant stored
// memories. Each piece is best effort; a gap in the snapshot beats no answer.
func (s *CompanionService) gatherSnapshot(ctx context.Context, user *domain.User, question string) domain.ContextSnapshot {
	now := time.Now().In(user.Location())
	var snapshot domain.ContextSnapshot
	var err error

	if snapshot.Medications, err = s.medStore.ScheduleForDay(ctx, user.ID, now); err != nil {
		s.logger.Warn("snapshot: schedule failed", zap.Error(err))
	}
	if snapshot.Meals, err = s.mealStore.ListForDay(ctx, user.ID, now); err != nil {
		s.logger.Warn("snapshot: meals failed", zap.Error(err))
	}
	if snapshot.Symptoms, err = s.symptomStore.ListForDay(ctx, user.ID, now); err != nil {
		s.logger.Warn("snapshot: symptoms failed", zap.Error(err))
	}
	if snapshot.Activities, err = s.actStore.ListForDay(ctx, user.ID, now); err != nil {
		s.logger.Warn("snapshot: activities failed", zap.Error(err))
	}
	if snapshot.Baseline, err = s.baseStore.Get(ctx, user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("snapshot: baseline failed", zap.Error(err))
	}

	if embedding, err := s.embedder.Embed(ctx, question); err != nil {
		s.logger.Warn("snapshot: embed question failed", zap.Error(err))
	} else if memories, err := s.memStore.FindSimilar(ctx, user.ID, embedding, answerTopK); err != nil {
		s.logger.Warn("snapshot: similarity search failed", zap.Error(err))
	} else {
		for _, m := range memories {
			snapshot.Passages = append(snapshot.Passages, m.Content)
		}
	}

	return snapshot
}

func (s *CompanionService) appendTurn(ctx context.Context, userID uuid.UUID, sender domain.Sender, text string, metadata map[string]string) error {
	return s.convStore.Append(ctx, &domain.ConversationTurn{
		UserID:   userID,
		Sender:   sender,
		Text:     text,
		Metadata: metadata,
	})
}

// persistReply writes the system turn, attaching the pending intent when a
// follow-up question was asked. A write failure is logged; the reply still
// goes out.
func (s *CompanionService) persistReply(ctx context.Context, userID uuid.UUID, result *TurnResult) {
	var metadata map[string]string
	if result.NeedsFollowUp && result.pendingJSON != "" {
		metadata = map[string]string{pendingIntentKey: result.pendingJSON}
	}
	if err := s.appendTurn(ctx, userID, domain.SenderSystem, result.Reply, metadata); err != nil {
		s.logger.Error("persist reply failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
