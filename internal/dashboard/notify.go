package dashboard

import "go.uber.org/zap"

// User facing texts.
const (
	MsgGeneric        = "Ocorreu um erro. Tente novamente."
	MsgNetwork        = "Erro de conexão. Verifique sua internet."
	MsgSessionExpired = "Sessão expirada. Faça login novamente."
	MsgFixForm        = "Corrija os erros no formulário antes de enviar."
	MsgDuplicate      = "Já existe um registro para esta data, canal e campanha."
	MsgCreated        = "Campanha cadastrada com sucesso."
	MsgLoadFailed     = "Não foi possível carregar os dados"
	MsgLiveUpdate     = "Dados atualizados em tempo real"

	TitleValidation = "Erro de Validação"
	TitleDuplicate  = "Registro Duplicado"
	TitleSaveFailed = "Erro ao Salvar"
	TitleSuccess    = "Sucesso!"
	TitleError      = "Erro"
	TitleLive       = "KPIs Atualizados"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

type Notification struct {
	Level   Level
	Title   string
	Message string
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the logger.
type LogNotifier struct{ Log *zap.Logger }

func (l LogNotifier) Notify(n Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("message", n.Message)}
	if n.Level == LevelError {
		l.Log.Warn("notification", fields...)
		return
	}
	l.Log.Info("notification", fields...)
}
