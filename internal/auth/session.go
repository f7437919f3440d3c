package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

// Keys held in the flow session. It carries the password recovery steps and
// one-shot flash messages; the signed-in identity lives in the session cookie.
const (
	FlowEmailKey      = "recovery_email"
	FlowResetTokenKey = "recovery_reset_token"
	FlowOTPSentAtKey  = "recovery_otp_sent_at"
	FlashKey          = "flash"
)

// ResendCooldown is how long the verify page waits before another code can
// be requested.
const ResendCooldown = 59 * time.Second

// NewSessionManager creates an SCS session manager backed by the application DB.
// The driver parameter selects the appropriate store: "mysql", "postgres", or
// "sqlite3" (default).
func NewSessionManager(db *sqlx.DB, driver string, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case "mysql":
		sm.Store = mysqlstore.New(db.DB)
	case "postgres":
		sm.Store = postgresstore.New(db.DB)
	default: // sqlite3
		sm.Store = sqlite3store.New(db.DB)
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "tomhasit.flow"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}

// Flow wraps the session manager with the recovery flow's accessors.
type Flow struct {
	sm  *scs.SessionManager
	Now func() time.Time
}

// NewFlow creates a Flow.
func NewFlow(sm *scs.SessionManager) *Flow {
	return &Flow{sm: sm, Now: time.Now}
}

// Manager exposes the underlying session manager for LoadAndSave.
func (f *Flow) Manager() *scs.SessionManager { return f.sm }

func (f *Flow) StartRecovery(ctx context.Context, email string) {
	f.sm.Put(ctx, FlowEmailKey, email)
	f.sm.Remove(ctx, FlowResetTokenKey)
	f.MarkOTPSent(ctx)
}

func (f *Flow) SetEmail(ctx context.Context, email string) {
	f.sm.Put(ctx, FlowEmailKey, email)
}

func (f *Flow) Email(ctx context.Context) string {
	return f.sm.GetString(ctx, FlowEmailKey)
}

func (f *Flow) SetResetToken(ctx context.Context, token string) {
	f.sm.Put(ctx, FlowResetTokenKey, token)
}

func (f *Flow) ResetToken(ctx context.Context) string {
	return f.sm.GetString(ctx, FlowResetTokenKey)
}

func (f *Flow) MarkOTPSent(ctx context.Context) {
	f.sm.Put(ctx, FlowOTPSentAtKey, f.Now().UTC())
}

// ResendWait returns how long until another code may be sent; zero means now.
func (f *Flow) ResendWait(ctx context.Context) time.Duration {
	sent := f.sm.GetTime(ctx, FlowOTPSentAtKey)
	if sent.IsZero() {
		return 0
	}
	wait := ResendCooldown - f.Now().Sub(sent)
	if wait < 0 {
		return 0
	}
	return wait
}

// FinishRecovery clears the recovery state.
func (f *Flow) FinishRecovery(ctx context.Context) {
	f.sm.Remove(ctx, FlowEmailKey)
	f.sm.Remove(ctx, FlowResetTokenKey)
	f.sm.Remove(ctx, FlowOTPSentAtKey)
}

// Flash stores a message for the next rendered page.
func (f *Flow) Flash(ctx context.Context, msg string) {
	f.sm.Put(ctx, FlashKey, msg)
}

// PopFlash returns and clears the pending flash message.
func (f *Flow) PopFlash(ctx context.Context) string {
	return f.sm.PopString(ctx, FlashKey)
}
