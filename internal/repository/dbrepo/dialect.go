package dbrepo

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Dialect различия SQL между поддерживаемыми движками. Плейсхолдеры везде в форме $N по возрастанию:
// SQLite понимает их как именованные параметры с теми же порядковыми номерами.
type Dialect struct {
	Driver string
}

// ForUpdate возвращает суффикс блокировки строки для чтения внутри пишущей транзакции. В SQLite вся транзакция
// уже эксклюзивна (BEGIN IMMEDIATE), поэтому суффикс пустой.
func (d Dialect) ForUpdate() string {
	if d.Driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}
