// Package pipeline drives the upstream's six-step reservation confirmation
// protocol: date check, time-slot check, court check, usage type, headcount
// and options, payment finalization. The six steps together form one
// attempt; a failed attempt is retried from step one with nothing carried
// forward.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/example/court-scheduler/internal/logging"
	"github.com/example/court-scheduler/internal/transport"
)

// Outcome is the pipeline's numeric return contract.
type Outcome int

const (
	// OutcomeSuccess: the final step confirmed the reservation.
	OutcomeSuccess Outcome = 0
	// OutcomeExhausted: every attempt failed.
	OutcomeExhausted Outcome = 1
	// OutcomeMissingInput: credential or date absent; nothing was sent.
	OutcomeMissingInput Outcome = 2
)

// CauseUnparseable is recorded when the final payload yields no readable
// status at either decode level.
const CauseUnparseable = "unparseable"

// Request is the frozen reservation data one run submits.
type Request struct {
	Cookie    string
	Date      string // YYYYMMDD
	TimeCode  string
	FromTime  string
	ToTime    string
	CourtCode string
	CourtNo   int
}

// Form holds the submission fields the upstream wants beyond the
// reservation itself. The zero value is not useful; start from DefaultForm.
type Form struct {
	MenuID    string `yaml:"menuId"`
	UseTypeCd string `yaml:"useTypeCd"`
	UseTypeNm string `yaml:"useTypeNm"`
	AdultCnt  int    `yaml:"adultCnt"`
	YouthCnt  int    `yaml:"youthCnt"`
	OldManCnt int    `yaml:"oldManCnt"`
	GCardCnt  int    `yaml:"gCardCnt"`
	MChildCnt int    `yaml:"mChildCnt"`
	UseLight  string `yaml:"useLightYn"`
	DealType  string `yaml:"dealType"`
}

// DefaultForm mirrors the values the upstream web flow submits for a plain
// practice booking paid by card.
func DefaultForm() Form {
	return Form{
		MenuID:    "Resv",
		UseTypeCd: "002",
		UseTypeNm: "연습이용",
		AdultCnt:  4,
		UseLight:  "N",
		DealType:  "CARD",
	}
}

// Result reports one full run: the outcome code plus the last observed
// failure cause (final-step status, CauseUnparseable, or a transport error
// description).
type Result struct {
	Code  Outcome
	Cause string
}

// Pipeline submits reservations through a per-cookie session. MaxRetries is
// clamped to [1,5] at run time.
type Pipeline struct {
	NewSession func(cookie string) transport.FormPoster
	Form       Form
	MaxRetries int
	Log        logging.Sink
}

type step struct {
	title string
	path  string
	form  func(req Request, f Form) url.Values
}

var steps = []step{
	{
		title: "1) date availability",
		path:  "/user/tennis/tennisReservDayCheck.do",
		form: func(req Request, _ Form) url.Values {
			return url.Values{"reservDate": {req.Date}}
		},
	},
	{
		title: "2) time slot confirmation",
		path:  "/user/tennis/tennisReservNext0Check.do",
		form: func(req Request, f Form) url.Values {
			return url.Values{
				"timeCode": {req.TimeCode},
				"fromTime": {req.FromTime},
				"toTime":   {req.ToTime},
				"menuId":   {f.MenuID},
			}
		},
	},
	{
		title: "3) court confirmation",
		path:  "/user/tennis/tennisReservNext1Check.do",
		form: func(req Request, f Form) url.Values {
			return url.Values{
				"courtCode": {req.CourtCode},
				"courtNo":   {strconv.Itoa(req.CourtNo)},
				"menuId":    {f.MenuID},
			}
		},
	},
	{
		title: "4) usage type",
		path:  "/user/tennis/tennisReservNext2Check.do",
		form: func(_ Request, f Form) url.Values {
			return url.Values{
				"useTypeCd": {f.UseTypeCd},
				"useTypeNm": {f.UseTypeNm},
				"menuId":    {f.MenuID},
			}
		},
	},
	{
		title: "5) headcount and options",
		path:  "/user/tennis/tennisReservNext3Check.do",
		form: func(_ Request, f Form) url.Values {
			return url.Values{
				"adultCnt":   {strconv.Itoa(f.AdultCnt)},
				"youthCnt":   {strconv.Itoa(f.YouthCnt)},
				"oldManCnt":  {strconv.Itoa(f.OldManCnt)},
				"gCardCnt":   {strconv.Itoa(f.GCardCnt)},
				"mChildCnt":  {strconv.Itoa(f.MChildCnt)},
				"useLightYn": {f.UseLight},
				"menuId":     {f.MenuID},
			}
		},
	},
	{
		title: "6) payment finalization",
		path:  "/user/tennis/tennisReservNext4Check.do",
		form: func(_ Request, f Form) url.Values {
			return url.Values{
				"deal_type": {f.DealType},
				"menuId":    {f.MenuID},
			}
		},
	},
}

// Run performs up to MaxRetries full six-step attempts and returns the
// outcome. Every raw step response is written to the log sink for audit;
// only the final step's payload decides success.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	log := p.Log
	if log == nil {
		log = logging.Discard
	}
	if req.Cookie == "" {
		log("submission aborted: no session cookie")
		return Result{Code: OutcomeMissingInput, Cause: "missing cookie"}
	}
	if req.Date == "" {
		log("submission aborted: no reservation date")
		return Result{Code: OutcomeMissingInput, Cause: "missing date"}
	}

	retries := p.MaxRetries
	if retries < 1 {
		retries = 1
	}
	if retries > 5 {
		retries = 5
	}

	runID := uuid.NewString()[:8]
	lastCause := CauseUnparseable

attempts:
	for attempt := 1; attempt <= retries; attempt++ {
		log(fmt.Sprintf("[%s] attempt %d/%d", runID, attempt, retries))

		// Any transport failure voids the whole attempt.
		session := p.NewSession(req.Cookie)
		var final string
		for _, st := range steps {
			text, err := session.PostForm(ctx, st.path, st.form(req, p.Form))
			if err != nil {
				lastCause = err.Error()
				log(fmt.Sprintf("[%s] %s: transport error: %v", runID, st.title, err))
				continue attempts
			}
			log(fmt.Sprintf("[%s] %s: %s", runID, st.title, text))
			final = text
		}

		ok, status := statusFromFinal(final)
		if ok {
			log(fmt.Sprintf("[%s] reservation confirmed", runID))
			return Result{Code: OutcomeSuccess, Cause: status}
		}
		lastCause = status
		log(fmt.Sprintf("[%s] final step failed (status=%s)", runID, status))
	}

	log(fmt.Sprintf("[%s] all attempts failed (last cause=%s)", runID, lastCause))
	return Result{Code: OutcomeExhausted, Cause: lastCause}
}

// statusFromFinal reads errCode out of the final step's JSON payload.
// The upstream sometimes double-encodes the envelope as a JSON string, and
// is known to nest at most once, so exactly one extra decode is attempted.
func statusFromFinal(text string) (ok bool, status string) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return false, CauseUnparseable
	}
	if quoted, isStr := v.(string); isStr {
		if err := json.Unmarshal([]byte(quoted), &v); err != nil {
			return false, CauseUnparseable
		}
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		return false, CauseUnparseable
	}
	code, present := m["errCode"]
	if !present || code == nil {
		return false, CauseUnparseable
	}
	status = strings.TrimSpace(fmt.Sprintf("%v", code))
	return status == "0", status
}
