package postgres

import (
	"context"
	"fmt"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
)

const dialectPostgres = "postgres"

const bookColumns = `b.id, b.title, b.isbn, b.description, b.publisher, b.language, b.edition, b.pages,
        b.publication_date, b.category_id, COALESCE(c.name, ''), b.price::text, b.total_copies,
        b.available_copies, b.added_at, b.updated_at`

const bookFrom = `
        FROM books b
        LEFT JOIN categories c ON c.id = b.category_id`

const authorsOfBookQuery = `
        SELECT a.id, a.name, a.bio, a.nationality, a.birth_date, a.death_date, a.created_at
        FROM authors a
        JOIN book_authors ba ON ba.author_id = a.id
        WHERE ba.book_id = $1
        ORDER BY a.name, a.id`

// BookRepository stores the catalogue: books, their authors and categories.
type BookRepository struct {
	*Transactor
	db     DBPool
	logger *slog.Logger
}

var _ catalog.Repository = (*BookRepository)(nil)

func NewBookRepository(db DBPool, logger *slog.Logger) *BookRepository {
	return &BookRepository{
		Transactor: NewTransactor(db, logger),
		db:         db,
		logger:     logger.With("component", "BookRepository"),
	}
}

func scanBook(row rowScanner) (*catalog.Book, error) {
	var (
		b     catalog.Book
		price string
	)
	if err := row.Scan(
		&b.ID, &b.Title, &b.ISBN, &b.Description, &b.Publisher, &b.Language, &b.Edition, &b.Pages,
		&b.PublicationDate, &b.CategoryID, &b.CategoryName, &price, &b.TotalCopies,
		&b.AvailableCopies, &b.AddedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := parseAmount(price)
	if err != nil {
		return nil, err
	}
	b.Price = parsed
	return &b, nil
}

func scanAuthor(row rowScanner) (catalog.Author, error) {
	var a catalog.Author
	err := row.Scan(&a.ID, &a.Name, &a.Bio, &a.Nationality, &a.BirthDate, &a.DeathDate, &a.CreatedAt)
	return a, err
}

func (r *BookRepository) CreateBook(ctx context.Context, book *catalog.Book, authorIDs []int64) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer r.RollbackTx(ctx, tx)

	bookSQL := `
        INSERT INTO books (title, isbn, description, publisher, language, edition, pages, publication_date,
                           category_id, price, total_copies, available_copies, added_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, NOW(), NOW())
        RETURNING id, added_at, updated_at`
	startTime := time.Now()

	err = tx.QueryRow(ctx, bookSQL,
		book.Title, book.ISBN, book.Description, book.Publisher, book.Language, book.Edition, book.Pages,
		book.PublicationDate, book.CategoryID, book.Price.String(), book.TotalCopies, book.AvailableCopies,
	).Scan(&book.ID, &book.AddedAt, &book.UpdatedAt)
	observe("CreateBook", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert book", "isbn", book.ISBN, "error", err)
		return translateDBError(err, r.logger)
	}

	if len(authorIDs) > 0 {
		linkSQL := `INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)`

		batch := &pgx.Batch{}
		for _, authorID := range authorIDs {
			batch.Queue(linkSQL, book.ID, authorID)
		}
		results := tx.SendBatch(ctx, batch)
		for i := range authorIDs {
			if _, err := results.Exec(); err != nil {
				results.Close()
				r.logger.ErrorContext(ctx, "Failed linking author to book", "book_id", book.ID, "author_id", authorIDs[i], "error", err)
				return fmt.Errorf("%w: author %d could not be linked: %w", apperrors.ErrInvalidArgument, authorIDs[i], err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
		}
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Book created in DB", "book_id", book.ID, "authors", len(authorIDs))
	return nil
}

func (r *BookRepository) GetBookByID(ctx context.Context, bookID int64) (*catalog.Book, error) {
	query := `SELECT ` + bookColumns + bookFrom + `
        WHERE b.id = $1`
	startTime := time.Now()

	book, err := scanBook(r.db.QueryRow(ctx, query, bookID))
	observe("GetBookByID", startTime, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}

	rows, err := r.db.Query(ctx, authorsOfBookQuery, bookID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		book.Authors = append(book.Authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return book, nil
}

func (r *BookRepository) GetBookForUpdateInTx(ctx context.Context, tx pgx.Tx, bookID int64) (*catalog.Book, error) {
	query := `SELECT ` + bookColumns + bookFrom + `
        WHERE b.id = $1
        FOR UPDATE OF b`
	startTime := time.Now()

	book, err := scanBook(tx.QueryRow(ctx, query, bookID))
	observe("GetBookForUpdate", startTime, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return book, nil
}

func (r *BookRepository) UpdateCopiesInTx(ctx context.Context, tx pgx.Tx, book *catalog.Book) error {
	query := `
        UPDATE books
        SET total_copies = $1, available_copies = $2, updated_at = NOW()
        WHERE id = $3`
	startTime := time.Now()

	cmdTag, err := tx.Exec(ctx, query, book.TotalCopies, book.AvailableCopies, book.ID)
	observe("UpdateBookCopies", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update book copies", "book_id", book.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: book %d", apperrors.ErrNotFound, book.ID)
	}
	return nil
}

func searchConditions(filter catalog.SearchFilter) []exp.Expression {
	conditions := make([]exp.Expression, 0, 3)
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		conditions = append(conditions, goqu.Or(
			goqu.I("b.title").ILike(pattern),
			goqu.I("b.isbn").ILike(pattern),
			goqu.I("b.description").ILike(pattern),
			goqu.I("b.publisher").ILike(pattern),
			goqu.L(`EXISTS (SELECT 1 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
                WHERE ba.book_id = b.id AND a.name ILIKE ?)`, pattern),
		))
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, goqu.I("b.category_id").Eq(*filter.CategoryID))
	}
	if filter.AvailableOnly {
		conditions = append(conditions, goqu.I("b.available_copies").Gt(0))
	}
	return conditions
}

// buildSearchQueries renders the count and page queries for a catalogue search.
func buildSearchQueries(filter catalog.SearchFilter) (countSQL string, countArgs []any, pageSQL string, pageArgs []any, err error) {
	base := goqu.Dialect(dialectPostgres).
		From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("b.category_id")))).
		Where(searchConditions(filter)...).
		Prepared(true)

	countSQL, countArgs, err = base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}

	page := base.Select(goqu.L(bookColumns)).
		Order(goqu.I("b.title").Asc(), goqu.I("b.id").Asc())
	if filter.PageSize > 0 {
		page = page.Limit(uint(filter.PageSize)).Offset(uint(filter.Offset()))
	}
	pageSQL, pageArgs, err = page.ToSQL()
	return countSQL, countArgs, pageSQL, pageArgs, err
}

func (r *BookRepository) SearchBooks(ctx context.Context, filter catalog.SearchFilter) ([]catalog.Book, int, error) {
	countSQL, countArgs, pageSQL, pageArgs, err := buildSearchQueries(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to build search query: %w", apperrors.ErrInternalServer, err)
	}
	startTime := time.Now()

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		observe("SearchBooks", startTime, err)
		return nil, 0, translateDBError(err, r.logger)
	}

	rows, err := r.db.Query(ctx, pageSQL, pageArgs...)
	observe("SearchBooks", startTime, err)
	if err != nil {
		return nil, 0, translateDBError(err, r.logger)
	}
	defer rows.Close()

	books := make([]catalog.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan book row", "error", err)
			return nil, 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return books, total, nil
}

func (r *BookRepository) CreateCategory(ctx context.Context, category *catalog.Category) error {
	query := `
        INSERT INTO categories (name, description, active, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, category.Name, category.Description, category.Active).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *BookRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	query := `SELECT id, name, description, active, created_at FROM categories WHERE active ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return categories, nil
}

func (r *BookRepository) CreateAuthor(ctx context.Context, author *catalog.Author) error {
	query := `
        INSERT INTO authors (name, bio, nationality, birth_date, death_date, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, author.Name, author.Bio, author.Nationality, author.BirthDate, author.DeathDate).
		Scan(&author.ID, &author.CreatedAt)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *BookRepository) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	query := `SELECT id, name, bio, nationality, birth_date, death_date, created_at FROM authors ORDER BY name, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	authors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Author, error) {
		return scanAuthor(row)
	})
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return authors, nil
}
