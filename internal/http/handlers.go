package http

import (
	"net/http"
	"strconv"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

type quickAddRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// handleQuickAdd creates a subscription from a one-line entry. A name
// collision answers 409 with the existing record and a pending key for
// /subscriptions/decide.
func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req quickAddRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid user_id")
		return
	}

	res, err := s.svc.QuickAdd(r.Context(), req.UserID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if res.Duplicate != nil {
		writeJSON(w, http.StatusConflict, map[string]any{
			"duplicate":   toSubscriptionJSON(*res.Duplicate),
			"pending_key": res.PendingKey,
			"decisions": []services.Decision{
				services.DecisionRecordPayment,
				services.DecisionUpdateExisting,
				services.DecisionCreateNew,
				services.DecisionCancel,
			},
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"subscription": toSubscriptionJSON(*res.Subscription),
	})
}

type decideRequest struct {
	UserID     int64  `json:"user_id"`
	PendingKey string `json:"pending_key"`
	Decision   string `json:"decision"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req decideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.PendingKey == "" {
		writeError(w, http.StatusBadRequest, "missing user_id or pending_key")
		return
	}

	res, err := s.svc.Decide(r.Context(), req.UserID, req.PendingKey, services.Decision(req.Decision))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if res.Subscription == nil {
		// Cancelled.
		writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscription": toSubscriptionJSON(*res.Subscription),
	})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := userIDFromQuery(w, r)
	if !ok {
		return
	}

	subs, err := s.svc.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]subscriptionJSON, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionJSON(sub))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

type markPaidRequest struct {
	UserID         int64 `json:"user_id"`
	SubscriptionID int64 `json:"subscription_id"`
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req markPaidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.SubscriptionID <= 0 {
		writeError(w, http.StatusBadRequest, "missing user_id or subscription_id")
		return
	}

	sub, err := s.svc.MarkPaid(r.Context(), req.UserID, req.SubscriptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": toSubscriptionJSON(sub)})
}

type pauseRequest struct {
	UserID         int64 `json:"user_id"`
	SubscriptionID int64 `json:"subscription_id"`
	Paused         bool  `json:"paused"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req pauseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.SubscriptionID <= 0 {
		writeError(w, http.StatusBadRequest, "missing user_id or subscription_id")
		return
	}

	if err := s.svc.SetPaused(r.Context(), req.UserID, req.SubscriptionID, req.Paused); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": req.Paused})
}

type editRequest struct {
	UserID         int64   `json:"user_id"`
	SubscriptionID int64   `json:"subscription_id"`
	Name           *string `json:"name"`
	Price          *string `json:"price"`
	NextDate       *string `json:"next_date"`
	Period         *string `json:"period"`
	Category       *string `json:"category"`
}

// handleEdit applies a partial update. Price accepts the same free
// text as quick add ("149 kr", "€9.99"), dates any user layout.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req editRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.SubscriptionID <= 0 {
		writeError(w, http.StatusBadRequest, "missing user_id or subscription_id")
		return
	}

	edit := services.SubscriptionEdit{
		Name:     req.Name,
		Category: req.Category,
	}
	if req.Period != nil {
		p := core.Period(*req.Period)
		edit.Period = &p
	}
	if req.NextDate != nil {
		d, ok := core.ParseDate(*req.NextDate)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "invalid next_date")
			return
		}
		edit.NextDate = &d
	}
	if req.Price != nil {
		settings, err := s.svc.Settings(r.Context(), req.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		m, err := core.ParsePrice(*req.Price, settings.DefaultCurrency)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		edit.Price = &m
	}

	sub, err := s.svc.Edit(r.Context(), req.UserID, req.SubscriptionID, edit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": toSubscriptionJSON(sub)})
}

type deleteRequest struct {
	UserID         int64 `json:"user_id"`
	SubscriptionID int64 `json:"subscription_id"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req deleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.SubscriptionID <= 0 {
		writeError(w, http.StatusBadRequest, "missing user_id or subscription_id")
		return
	}

	if err := s.svc.Delete(r.Context(), req.UserID, req.SubscriptionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := userIDFromQuery(w, r)
	if !ok {
		return
	}

	items, err := s.svc.Upcoming(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	type upcomingJSON struct {
		Subscription subscriptionJSON `json:"subscription"`
		DaysLeft     int              `json:"days_left"`
	}
	out := make([]upcomingJSON, 0, len(items))
	for _, it := range items {
		out = append(out, upcomingJSON{
			Subscription: toSubscriptionJSON(it.Subscription),
			DaysLeft:     it.DaysLeft,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"upcoming": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := userIDFromQuery(w, r)
	if !ok {
		return
	}
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 2000 || y > 2200 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	stats, err := s.svc.YearlyStats(r.Context(), userID, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	type statsJSON struct {
		Currency     string    `json:"currency"`
		TotalCents   int64     `json:"total_cents"`
		TotalDisplay string    `json:"total_display"`
		ByMonth      [12]int64 `json:"by_month_cents"`
	}
	out := make([]statsJSON, 0, len(stats))
	for _, st := range stats {
		out = append(out, statsJSON{
			Currency:     string(st.Currency),
			TotalCents:   st.Total.Cents,
			TotalDisplay: core.FormatPrice(st.Total),
			ByMonth:      st.ByMonth,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "totals": out})
}

type settingsRequest struct {
	UserID          int64  `json:"user_id"`
	DefaultCurrency string `json:"default_currency"`
	ReminderEnabled bool   `json:"reminder_enabled"`
	ReminderDays    []int  `json:"reminder_days"`
	ReminderHour    int    `json:"reminder_hour"`
}

type settingsJSON struct {
	DefaultCurrency string `json:"default_currency"`
	ReminderEnabled bool   `json:"reminder_enabled"`
	ReminderDays    []int  `json:"reminder_days"`
	ReminderHour    int    `json:"reminder_hour"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, ok := userIDFromQuery(w, r)
		if !ok {
			return
		}
		settings, err := s.svc.Settings(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settingsJSON{
			DefaultCurrency: string(settings.DefaultCurrency),
			ReminderEnabled: settings.ReminderEnabled,
			ReminderDays:    settings.ReminderDays,
			ReminderHour:    settings.ReminderHour,
		})
	case http.MethodPut, http.MethodPost:
		var req settingsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID <= 0 {
			writeError(w, http.StatusBadRequest, "missing or invalid user_id")
			return
		}
		settings := core.Settings{
			DefaultCurrency: core.Currency(req.DefaultCurrency),
			ReminderEnabled: req.ReminderEnabled,
			ReminderDays:    req.ReminderDays,
			ReminderHour:    req.ReminderHour,
		}
		if err := s.svc.UpdateSettings(r.Context(), req.UserID, settings); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": true})
	default:
		w.Header().Set("Allow", "GET, PUT, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
