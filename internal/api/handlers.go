package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/api/middleware"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/registration"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/review"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

type (
	BookingCreator interface {
		Execute(ctx context.Context, params usecase.CreateBookingParams) (*booking.Booking, error)
	}
	BookingGetter interface {
		Execute(ctx context.Context, id string) (*booking.Booking, error)
	}
	BookingLister interface {
		Execute(ctx context.Context, f booking.Filter) ([]*booking.Booking, error)
	}
	BookingStatusUpdater interface {
		Execute(ctx context.Context, params usecase.UpdateBookingStatusParams) (*booking.Booking, error)
	}
	BookingTimeline interface {
		Execute(ctx context.Context, id string) (*usecase.TimelineDTO, error)
	}
	PilgrimRegistrar interface {
		Execute(ctx context.Context, params usecase.RegisterPilgrimParams) (*pilgrim.Pilgrim, error)
	}
	DashboardReader interface {
		Execute(ctx context.Context) (*usecase.DashboardStatsDTO, error)
	}
	ReviewLister interface {
		Execute(ctx context.Context) (*usecase.ReviewsDTO, error)
	}
	ReviewCreator interface {
		Execute(ctx context.Context, params usecase.CreateReviewParams) (*review.Review, error)
	}
	RoomLister interface {
		Execute(ctx context.Context, day time.Time) (*usecase.RoomsDTO, error)
	}
	Authenticator interface {
		Execute(ctx context.Context, username, password string) (*usecase.LoginResult, error)
	}
)

// Deps wires the handlers to the usecases.
type Deps struct {
	CreateBooking   BookingCreator
	GetBooking      BookingGetter
	ListBookings    BookingLister
	UpdateStatus    BookingStatusUpdater
	BookingTimeline BookingTimeline
	RegisterPilgrim PilgrimRegistrar
	DashboardStats  DashboardReader
	ListReviews     ReviewLister
	CreateReview    ReviewCreator
	ListRooms       RoomLister
	Login           Authenticator

	Rules registration.Rules
}

type Handlers struct {
	d   Deps
	now func() time.Time
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{d: d, now: time.Now}
}

func (h *Handlers) rules() registration.Rules {
	r := h.d.Rules
	r.Now = h.now()
	return r
}

type createBookingRequest struct {
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	RoomType   string `json:"room_type"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	checkIn, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	checkOut, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if req.Guests == 0 {
		req.Guests = 1
	}

	b, err := h.d.CreateBooking.Execute(r.Context(), usecase.CreateBookingParams{
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
		RoomType:   req.RoomType,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     req.Guests,
	})
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/bookings/"+b.ID)
	writeJSON(w, http.StatusCreated, bookingResponse(b))
}

type bookingView struct {
	*booking.Booking
	Nights int `json:"nights"`
}

func bookingResponse(b *booking.Booking) bookingView {
	return bookingView{Booking: b, Nights: b.Nights()}
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.d.GetBooking.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, bookingResponse(b))
}

// BookingQR renders the confirmation QR shown at check-in.
func (h *Handlers) BookingQR(w http.ResponseWriter, r *http.Request) {
	b, err := h.d.GetBooking.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			writeError(w, http.StatusBadRequest, "validation failed", "size must be between 64 and 1024")
			return
		}
		size = n
	}

	content := fmt.Sprintf("ALBERGUE-BOOKING:%s:%s:%s", b.ID, b.CheckIn.Format(time.DateOnly), b.Status)
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		writeUsecaseError(w, r, fmt.Errorf("encode qr: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type registerPilgrimRequest struct {
	FirstName       string `json:"first_name"`
	LastName1       string `json:"last_name_1"`
	LastName2       string `json:"last_name_2"`
	DocumentType    string `json:"document_type"`
	DocumentNumber  string `json:"document_number"`
	DocumentSupport string `json:"document_support"`
	IssueDate       string `json:"issue_date"`
	Nationality     string `json:"nationality"`
	BirthDate       string `json:"birth_date"`
	Gender          string `json:"gender"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Street          string `json:"street"`
	City            string `json:"city"`
	PostalCode      string `json:"postal_code"`
	Country         string `json:"country"`
}

func (h *Handlers) RegisterPilgrim(w http.ResponseWriter, r *http.Request) {
	var req registerPilgrimRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	var issue *time.Time
	if req.IssueDate != "" {
		t, err := parseDate("issue_date", req.IssueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		issue = &t
	}

	p, err := h.d.RegisterPilgrim.Execute(r.Context(), usecase.RegisterPilgrimParams{
		BookingID:       chi.URLParam(r, "id"),
		FirstName:       req.FirstName,
		LastName1:       req.LastName1,
		LastName2:       req.LastName2,
		DocumentType:    req.DocumentType,
		DocumentNumber:  req.DocumentNumber,
		DocumentSupport: req.DocumentSupport,
		IssueDate:       issue,
		Nationality:     req.Nationality,
		BirthDate:       birth,
		Gender:          req.Gender,
		Phone:           req.Phone,
		Email:           req.Email,
		Street:          req.Street,
		City:            req.City,
		PostalCode:      req.PostalCode,
		Country:         req.Country,
	})
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentType   string `json:"document_type"`
		DocumentNumber string `json:"document_number"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocumentNumber == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "document_number is required")
		return
	}

	// An invalid document is a successful check with valid=false.
	writeJSON(w, http.StatusOK, usecase.ValidateDocument(req.DocumentType, req.DocumentNumber))
}

func (h *Handlers) ScanDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := usecase.ScanDocument(req.Text, h.now())
	if err != nil {
		if errors.Is(err, usecase.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, "no document data found", detail(err))
			return
		}
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type registrationForm struct {
	CheckIn              string `json:"check_in"`
	CheckOut             string `json:"check_out"`
	Guests               int    `json:"guests"`
	DocumentType         string `json:"document_type"`
	DocumentNumber       string `json:"document_number"`
	DocumentSupport      string `json:"document_support"`
	FirstName            string `json:"first_name"`
	LastName1            string `json:"last_name_1"`
	LastName2            string `json:"last_name_2"`
	BirthDate            string `json:"birth_date"`
	Gender               string `json:"gender"`
	Nationality          string `json:"nationality"`
	Phone                string `json:"phone"`
	Email                string `json:"email"`
	Street               string `json:"street"`
	City                 string `json:"city"`
	PostalCode           string `json:"postal_code"`
	Country              string `json:"country"`
	RoomType             string `json:"room_type"`
	BedID                string `json:"bed_id"`
	AcceptTerms          bool   `json:"accept_terms"`
	AcceptDataProcessing bool   `json:"accept_data_processing"`
}

func (f registrationForm) toForm() (registration.Form, error) {
	form := registration.Form{
		Guests:               f.Guests,
		DocumentType:         f.DocumentType,
		DocumentNumber:       f.DocumentNumber,
		DocumentSupport:      f.DocumentSupport,
		FirstName:            f.FirstName,
		LastName1:            f.LastName1,
		LastName2:            f.LastName2,
		Gender:               f.Gender,
		Nationality:          f.Nationality,
		Phone:                f.Phone,
		Email:                f.Email,
		Street:               f.Street,
		City:                 f.City,
		PostalCode:           f.PostalCode,
		Country:              f.Country,
		RoomType:             f.RoomType,
		BedID:                f.BedID,
		AcceptTerms:          f.AcceptTerms,
		AcceptDataProcessing: f.AcceptDataProcessing,
	}

	var err error
	if form.CheckIn, err = parseDate("check_in", f.CheckIn); err != nil {
		return form, err
	}
	if form.CheckOut, err = parseDate("check_out", f.CheckOut); err != nil {
		return form, err
	}
	if form.BirthDate, err = parseDate("birth_date", f.BirthDate); err != nil {
		return form, err
	}
	return form, nil
}

func (h *Handlers) ValidateRegistrationStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step int              `json:"step"`
		Form registrationForm `json:"form"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	form, err := req.Form.toForm()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	check, err := usecase.ValidateRegistrationStep(form, registration.Step(req.Step), h.rules())
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	dto, err := h.d.ListReviews.Execute(r.Context())
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateReviewParams
	if !decodeJSON(w, r, &req) {
		return
	}

	rv, err := h.d.CreateReview.Execute(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := parseDate("date", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		day = t
	}

	dto, err := h.d.ListRooms.Execute(r.Context(), day)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.d.Login.Execute(r.Context(), req.Username, req.Password)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}

	resp := map[string]any{"username": claims.Subject, "role": claims.Role}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.d.DashboardStats.Execute(r.Context())
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := booking.Filter{Status: booking.Status(q.Get("status"))}

	var err error
	if f.From, err = parseDate("from", q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if f.To, err = parseDate("to", q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if s := q.Get(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "validation failed", name+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}

	list, err := h.d.ListBookings.Execute(r.Context(), f)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	views := make([]bookingView, 0, len(list))
	for _, b := range list {
		views = append(views, bookingResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": views, "count": len(views)})
}

func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	b, err := h.d.UpdateStatus.Execute(r.Context(), usecase.UpdateBookingStatusParams{
		BookingID:     chi.URLParam(r, "id"),
		Status:        booking.Status(req.Status),
		PaymentStatus: booking.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse(b))
}

func (h *Handlers) BookingTimeline(w http.ResponseWriter, r *http.Request) {
	tl, err := h.d.BookingTimeline.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tl)
}
