package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// API exposes the assessment engine over JSON REST plus the websocket
// event feed. It is also the orchestration layer: completing the
// assignments that originated a submitted attempt happens here, not
// inside AttemptEngine, so the two stay independently testable.
type API struct {
	bank        *app.QuestionBank
	tagger      *app.TopicTagger
	assignments *app.AssignmentService
	attempts    *app.AttemptEngine
	stats       *app.StatsAggregator
	hub         *EventHub
	validate    *validator.Validate
}

func NewAPI(bank *app.QuestionBank, tagger *app.TopicTagger, assignments *app.AssignmentService, attempts *app.AttemptEngine, stats *app.StatsAggregator, hub *EventHub) *API {
	return &API{
		bank:        bank,
		tagger:      tagger,
		assignments: assignments,
		attempts:    attempts,
		stats:       stats,
		hub:         hub,
		validate:    validator.New(),
	}
}

// Router builds the chi route tree.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/events", a.hub.ServeWS)

	r.Route("/questions", func(r chi.Router) {
		r.Post("/", a.saveQuestion)
		r.Route("/{questionID}", func(r chi.Router) {
			r.Get("/", a.getQuestion)
			r.Delete("/", a.deleteQuestion)
			r.Get("/topics", a.topicsForQuestion)
			r.Put("/topics", a.setTopics)
			r.Post("/topics/{topicID}", a.associateTopic)
			r.Delete("/topics/{topicID}", a.disassociateTopic)
		})
	})

	r.Get("/topics/{topicID}/questions", a.questionsForTopic)

	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", a.assign)
		r.Get("/{assignmentID}", a.getAssignment)
		r.Post("/{assignmentID}/complete", a.completeAssignment)
	})

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/assignments", a.assignmentsByUser)
		r.Get("/attempts", a.attemptsByUser)
		r.Get("/stats", a.userStats)
	})

	r.Route("/attempts", func(r chi.Router) {
		r.Post("/start", a.startAttempt)
		r.Get("/active", a.activeAttempt)
		r.Post("/{attemptID}/submit", a.submitAttempt)
	})

	r.Route("/exams/{examID}", func(r chi.Router) {
		r.Get("/assignments", a.assignmentsByExam)
		r.Get("/stats", a.examStats)
	})

	r.Get("/stats/totals", a.totals)

	return r
}

type saveQuestionRequest struct {
	ID            string   `json:"id"`
	ExamID        string   `json:"examId" validate:"required"`
	Text          string   `json:"text" validate:"required"`
	Type          string   `json:"type" validate:"required,oneof=multiple_choice single_choice true_false"`
	Options       []string `json:"options" validate:"required,min=1"`
	CorrectOption *int     `json:"correctOption" validate:"required,min=0"`
	Points        int      `json:"points" validate:"required,min=1"`
	Active        *bool    `json:"active"`
}

func (a *API) saveQuestion(w http.ResponseWriter, r *http.Request) {
	var req saveQuestionRequest
	if !a.decode(w, r, &req) {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	question := &domain.Question{
		ID:            req.ID,
		ExamID:        req.ExamID,
		Text:          req.Text,
		Type:          domain.QuestionType(req.Type),
		Options:       req.Options,
		CorrectOption: *req.CorrectOption,
		Points:        req.Points,
		Active:        active,
	}
	if err := a.bank.Save(r.Context(), question); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (a *API) getQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := a.bank.FindByID(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.bank.Delete(r.Context(), chi.URLParam(r, "questionID")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTopicsRequest struct {
	TopicIDs []string `json:"topicIds" validate:"required"`
}

func (a *API) setTopics(w http.ResponseWriter, r *http.Request) {
	var req setTopicsRequest
	if !a.decode(w, r, &req) {
		return
	}
	questionID := chi.URLParam(r, "questionID")
	if err := a.tagger.SetTopics(r.Context(), questionID, req.TopicIDs); err != nil {
		a.writeError(w, err)
		return
	}
	a.topicsForQuestion(w, r)
}

func (a *API) associateTopic(w http.ResponseWriter, r *http.Request) {
	err := a.tagger.Associate(r.Context(), chi.URLParam(r, "questionID"), chi.URLParam(r, "topicID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) disassociateTopic(w http.ResponseWriter, r *http.Request) {
	err := a.tagger.Disassociate(r.Context(), chi.URLParam(r, "questionID"), chi.URLParam(r, "topicID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) topicsForQuestion(w http.ResponseWriter, r *http.Request) {
	topicIDs, err := a.tagger.TopicsFor(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"topicIds": topicIDs})
}

func (a *API) questionsForTopic(w http.ResponseWriter, r *http.Request) {
	questionIDs, err := a.tagger.QuestionsFor(r.Context(), chi.URLParam(r, "topicID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questionIds": questionIDs})
}

type assignRequest struct {
	UserID     string     `json:"userId" validate:"required"`
	ExamID     string     `json:"examId" validate:"required"`
	AssignedBy string     `json:"assignedBy" validate:"required"`
	DueDate    *time.Time `json:"dueDate"`
}

func (a *API) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !a.decode(w, r, &req) {
		return
	}
	assignment, err := a.assignments.Assign(r.Context(), req.UserID, req.ExamID, req.AssignedBy, req.DueDate)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (a *API) getAssignment(w http.ResponseWriter, r *http.Request) {
	assignment, err := a.assignments.Get(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentView(assignment, time.Now()))
}

func (a *API) completeAssignment(w http.ResponseWriter, r *http.Request) {
	assignment, err := a.assignments.MarkCompleted(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentView(assignment, time.Now()))
}

func (a *API) assignmentsByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	var (
		assignments []domain.ExamAssignment
		err         error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "", "all":
		assignments, err = a.assignments.ByUser(ctx, userID)
	case "pending":
		assignments, err = a.assignments.PendingByUser(ctx, userID)
	case "overdue":
		assignments, err = a.assignments.OverdueByUser(ctx, userID)
	case "completed":
		assignments, err = a.assignments.CompletedByUser(ctx, userID)
	default:
		a.writeError(w, domain.Validation("unknown status filter %q", status))
		return
	}
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentViews(assignments, time.Now()))
}

func (a *API) assignmentsByExam(w http.ResponseWriter, r *http.Request) {
	assignments, err := a.assignments.ByExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentViews(assignments, time.Now()))
}

type startAttemptRequest struct {
	UserID string `json:"userId" validate:"required"`
	ExamID string `json:"examId" validate:"required"`
}

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if !a.decode(w, r, &req) {
		return
	}
	result, err := a.attempts.Start(r.Context(), req.UserID, req.ExamID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) activeAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := a.attempts.Active(r.Context(), r.URL.Query().Get("userId"), r.URL.Query().Get("examId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

type submitAttemptRequest struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

func (a *API) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitAttemptRequest
	if !a.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	result, err := a.attempts.Submit(ctx, chi.URLParam(r, "attemptID"), req.Answers)
	if err != nil {
		a.writeError(w, err)
		return
	}

	// The attempt is persisted; assignment completion and the event feed
	// are follow-up effects that must not fail the response.
	pending, err := a.assignments.PendingFor(ctx, result.UserID, result.ExamID)
	if err != nil {
		log.Printf("lookup assignments for %s/%s: %v", result.UserID, result.ExamID, err)
	}
	for _, assignment := range pending {
		if _, err := a.assignments.MarkCompleted(ctx, assignment.ID); err != nil {
			log.Printf("complete assignment %s: %v", assignment.ID, err)
		}
	}

	a.hub.Publish(domain.AttemptCompleted{
		AttemptID:  result.AttemptID,
		UserID:     result.UserID,
		ExamID:     result.ExamID,
		Score:      result.EarnedPoints,
		Percentage: result.Percentage,
		Passed:     result.Passed,
		OccurredAt: time.Now(),
	})

	writeJSON(w, http.StatusOK, result)
}

func (a *API) attemptsByUser(w http.ResponseWriter, r *http.Request) {
	attempts, err := a.attempts.ByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (a *API) examStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.ExamStats(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.UserAssignmentStats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := a.stats.Totals(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// decode unmarshals and validates the request body, writing the error
// response itself when the payload is unusable.
func (a *API) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		a.writeError(w, domain.Validation("invalid request body"))
		return false
	}
	if err := a.validate.Struct(into); err != nil {
		a.writeError(w, domain.Validation("invalid request: %v", err))
		return false
	}
	return true
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Kind: "internal", Message: "internal error"}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = http.StatusUnprocessableEntity
		body = errorBody{Kind: string(domain.KindValidation), Message: err.Error()}
	case domain.KindNotFound:
		status = http.StatusNotFound
		body = errorBody{Kind: string(domain.KindNotFound), Message: err.Error()}
	case domain.KindConflict:
		status = http.StatusConflict
		body = errorBody{Kind: string(domain.KindConflict), Message: err.Error()}
	default:
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

// assignmentPayload decorates the stored assignment with the derived
// overdue flag so clients never compute or cache it themselves.
type assignmentPayload struct {
	*domain.ExamAssignment
	IsOverdue bool `json:"isOverdue"`
}

func assignmentView(a *domain.ExamAssignment, now time.Time) assignmentPayload {
	return assignmentPayload{ExamAssignment: a, IsOverdue: a.IsOverdue(now)}
}

func assignmentViews(assignments []domain.ExamAssignment, now time.Time) []assignmentPayload {
	out := make([]assignmentPayload, 0, len(assignments))
	for i := range assignments {
		out = append(out, assignmentView(&assignments[i], now))
	}
	return out
}
