package email

import (
	"html/template"
	"strings"
)

// The message bodies mirror the site's Portuguese copy. html/template
// escapes user-supplied fields, so a hostile contact message cannot inject
// markup into the operator's inbox.

const (
	SubjectContact       = "Nova mensagem de contato - ToxiFácil"
	SubjectConfirmation  = "Confirme seu cadastro - ToxiFácil"
	SubjectPasswordReset = "Recuperação de senha - ToxiFácil"
	SubjectBooking       = "Agendamento confirmado - ToxiFácil"
)

var contactTmpl = template.Must(template.New("contact").Parse(`<h2>Nova mensagem de contato - ToxiFácil</h2>
<p><strong>Nome:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Telefone:</strong> {{.Phone}}</p>
<p><strong>Mensagem:</strong></p>
<p>{{.Message}}</p>`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<h2>Bem-vindo ao ToxiFácil!</h2>
<p>Para confirmar seu cadastro, clique no link abaixo:</p>
<p><a href="{{.URL}}">Confirmar cadastro</a></p>
<p>Se você não solicitou este cadastro, ignore este email.</p>`))

var passwordResetTmpl = template.Must(template.New("password-reset").Parse(`<h2>Recuperação de senha</h2>
<p>Para redefinir sua senha, clique no link abaixo:</p>
<p><a href="{{.URL}}">Redefinir senha</a></p>
<p>Se você não solicitou a recuperação de senha, ignore este email.</p>`))

var bookingTmpl = template.Must(template.New("booking").Parse(`<h2>Agendamento confirmado!</h2>
<p><strong>Exame:</strong> {{.ExamTitle}}</p>
<p><strong>Laboratório:</strong> {{.LaboratoryName}}</p>
<p><strong>Endereço:</strong> {{.Address}}, {{.City}} - {{.State}}</p>
<p><strong>Data e hora:</strong> {{.ScheduledAt}}</p>
<p>Chegue com 15 minutos de antecedência e traga um documento com foto.</p>`))

type ContactData struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

type LinkData struct {
	URL string
}

type BookingData struct {
	ExamTitle      string
	LaboratoryName string
	Address        string
	City           string
	State          string
	ScheduledAt    string
}

func RenderContact(data ContactData) (string, error) {
	return render(contactTmpl, data)
}

func RenderConfirmation(data LinkData) (string, error) {
	return render(confirmationTmpl, data)
}

func RenderPasswordReset(data LinkData) (string, error) {
	return render(passwordResetTmpl, data)
}

func RenderBooking(data BookingData) (string, error) {
	return render(bookingTmpl, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
