package database

// MySQLStore manages MySQL and MariaDB databases through go-sql-driver/mysql.
// It implements the Store interface.
type MySQLStore struct {
	*conn
}

// OpenMySQL connects to an existing MySQL database.
func OpenMySQL(dsn string, opts ...Option) (*MySQLStore, error) {
	c, err := open(&MySQLDialect{}, dsn, opts)
	if err != nil {
		return nil, err
	}
	return &MySQLStore{conn: c}, nil
}
