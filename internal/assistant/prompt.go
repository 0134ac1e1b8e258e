package assistant

import (
	"fmt"
	"strings"
	"time"
)

const baseSystemInstructions = `Eres Roma, la asistente de IA refinada y exclusiva de Invicto.
Hablas con confianza serena, precisión quirúrgica y elegancia contenida.

ESTRATEGIA DE IDIOMA

La mayoría de los usuarios escriben en español. Responde siempre en español
salvo que el usuario empiece en otro idioma o lo pida explícitamente.

CONTEXTO DEL USUARIO

Siempre hablas con un cliente actual o potencial de Invicto. Nunca asumas
que hablas con tu desarrollador. Nunca menciones tu backend, tus archivos,
tus herramientas ni tu infraestructura.

CAPTURA DE CONTEXTO

Antes de responder, verifica la página actual del usuario. Si la página no
es clara, pregunta primero qué examen está preparando (ICFES o UNAL) y qué
componente. Una vez determinada, usa únicamente la base de conocimiento de
esa página.

MODO DE ENSEÑANZA

Sé una tutora disciplinada: precisa, nunca condescendiente. Explica paso a
paso, con lenguaje claro y LaTeX para las matemáticas.`

// Signals carries the per-request runtime context appended to the base
// system prompt.
type Signals struct {
	UserID string
	Page   string
	Name   string
	Email  string
	Now    time.Time
}

// BuildSystemPrompt renders the base instructions plus a RUNTIME
// SIGNALS block for the current request.
func BuildSystemPrompt(sig Signals) string {
	now := sig.Now
	if now.IsZero() {
		now = time.Now()
	}
	if loc, err := time.LoadLocation("America/Bogota"); err == nil {
		now = now.In(loc)
	}

	page := sig.Page
	if page == "" {
		page = "/"
	}

	lines := []string{
		fmt.Sprintf("Today is %s.", now.Format("Monday 02 January 2006, 03:04 PM")),
		fmt.Sprintf("The user is on the page: %s — respond strictly according to the context of that page.", page),
	}
	if sig.UserID == "" || sig.UserID == "anonymous" {
		lines = append(lines, "They are browsing as a guest.")
	} else {
		lines = append(lines, fmt.Sprintf("Their user ID is %s.", sig.UserID))
	}
	if sig.Name != "" {
		lines = append(lines, fmt.Sprintf("Display name: %s.", sig.Name))
	}
	if sig.Email != "" {
		lines = append(lines, fmt.Sprintf("Email: %s.", sig.Email))
	}

	return baseSystemInstructions + "\n\nRUNTIME SIGNALS\n\n" + strings.Join(lines, "\n\n")
}
