package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no published row matches
var ErrNotFound = errors.New("content not found")

// Repository reads articles, pages and products directly from the
// content database's posts/postmeta/terms schema. Read-only.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRepository connects to the content database
func NewRepository(dsn string) (*Repository, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to content database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping content database: %w", err)
	}

	return &Repository{db: db, logger: util.GetLogger()}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type contentRow struct {
	ID            int64     `db:"id"`
	Title         string    `db:"title"`
	Content       string    `db:"content"`
	Excerpt       string    `db:"excerpt"`
	Status        string    `db:"status"`
	PublishedDate time.Time `db:"published_date"`
	ModifiedDate  time.Time `db:"modified_date"`
	Slug          string    `db:"slug"`
	Type          string    `db:"type"`
	AuthorID      int64     `db:"author_id"`
}

type termRow struct {
	Name string `db:"name"`
	Slug string `db:"slug"`
}

type imageRow struct {
	URL string `db:"url"`
	Alt string `db:"alt"`
}

type metaRow struct {
	Key   string `db:"meta_key"`
	Value string `db:"meta_value"`
}

func (row contentRow) toModel() models.Content {
	return models.Content{
		ID:            row.ID,
		Title:         row.Title,
		Content:       row.Content,
		Excerpt:       row.Excerpt,
		Status:        row.Status,
		Slug:          row.Slug,
		Type:          row.Type,
		PublishedDate: row.PublishedDate,
		ModifiedDate:  row.ModifiedDate,
	}
}

const contentColumns = `
	p.ID as id,
	p.post_title as title,
	p.post_content as content,
	p.post_excerpt as excerpt,
	p.post_status as status,
	p.post_date as published_date,
	p.post_modified as modified_date,
	p.post_name as slug,
	p.post_type as type`

// ListContent retrieves published content of one type, newest first
func (r *Repository) ListContent(ctx context.Context, contentType string, limit, offset int) ([]models.Content, error) {
	ctx, span := util.StartSpan(ctx, "Content.ListContent")
	defer span.End()

	var rows []contentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT`+contentColumns+`
		FROM wp_posts p
		WHERE p.post_type = ?
		  AND p.post_status = 'publish'
		ORDER BY p.post_date DESC
		LIMIT ? OFFSET ?`, contentType, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]models.Content, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// GetContentBySlug retrieves one published content item with its author,
// categories, tags, images and meta joined in
func (r *Repository) GetContentBySlug(ctx context.Context, slug, contentType string) (*models.Content, error) {
	ctx, span := util.StartSpan(ctx, "Content.GetContentBySlug")
	defer span.End()

	var row contentRow
	err := r.db.GetContext(ctx, &row, `
		SELECT`+contentColumns+`,
			p.post_author as author_id
		FROM wp_posts p
		WHERE p.post_name = ?
		  AND p.post_type = ?
		  AND p.post_status = 'publish'`, slug, contentType)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	item := row.toModel()

	var author models.Author
	err = r.db.GetContext(ctx, &author,
		"SELECT display_name as name, user_email as email FROM wp_users WHERE ID = ?", row.AuthorID)
	if err == nil {
		item.Author = &author
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	item.Categories, err = r.terms(ctx, row.ID, "category", "product_cat")
	if err != nil {
		return nil, err
	}
	item.Tags, err = r.terms(ctx, row.ID, "post_tag", "product_tag")
	if err != nil {
		return nil, err
	}
	item.Images, err = r.attachedImages(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	item.Meta, err = r.ContentMeta(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// ContentMeta retrieves the key/value meta rows for a content item
func (r *Repository) ContentMeta(ctx context.Context, contentID int64) (map[string]string, error) {
	var rows []metaRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT meta_key, meta_value FROM wp_postmeta WHERE post_id = ?", contentID)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(rows))
	for _, row := range rows {
		meta[row.Key] = row.Value
	}
	return meta, nil
}

// terms retrieves the taxonomy terms attached to a content item
func (r *Repository) terms(ctx context.Context, contentID int64, taxonomies ...string) ([]models.Category, error) {
	query, args, err := sqlx.In(`
		SELECT t.name, t.slug FROM wp_terms t
		INNER JOIN wp_term_taxonomy tt ON t.term_id = tt.term_id
		INNER JOIN wp_term_relationships tr ON tt.term_taxonomy_id = tr.term_taxonomy_id
		WHERE tr.object_id = ? AND tt.taxonomy IN (?)`, contentID, taxonomies)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var rows []termRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]models.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Category{Name: row.Name, Slug: row.Slug})
	}
	return out, nil
}

// attachedImages retrieves image attachments of a content item in menu order
func (r *Repository) attachedImages(ctx context.Context, contentID int64) ([]models.Image, error) {
	var rows []imageRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT guid as url, post_title as alt
		FROM wp_posts
		WHERE post_parent = ?
		  AND post_type = 'attachment'
		  AND post_mime_type LIKE 'image%'
		ORDER BY menu_order ASC`, contentID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Image, 0, len(rows))
	for _, row := range rows {
		alt := row.Alt
		if alt == "" {
			alt = "Product Image"
		}
		out = append(out, models.Image{Src: row.URL, Alt: alt})
	}
	return out, nil
}

type menuRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Slug string `db:"slug"`
}

type menuItemRow struct {
	ID     int64          `db:"id"`
	Title  string         `db:"title"`
	Slug   string         `db:"slug"`
	Type   string         `db:"type"`
	Parent sql.NullString `db:"parent"`
	Order  sql.NullString `db:"menu_order"`
}

// ListMenus retrieves every navigation menu with its items in menu
// order, keyed by menu slug
func (r *Repository) ListMenus(ctx context.Context) (map[string][]models.MenuItem, error) {
	ctx, span := util.StartSpan(ctx, "Content.ListMenus")
	defer span.End()

	var menus []menuRow
	err := r.db.SelectContext(ctx, &menus, `
		SELECT t.term_id as id, t.name as name, t.slug as slug
		FROM wp_terms t
		INNER JOIN wp_term_taxonomy tt ON t.term_id = tt.term_id
		WHERE tt.taxonomy = 'nav_menu'`)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.MenuItem, len(menus))
	for _, menu := range menus {
		var rows []menuItemRow
		err := r.db.SelectContext(ctx, &rows, `
			SELECT
				p.ID as id,
				p.post_title as title,
				p.post_name as slug,
				p.post_type as type,
				pm.meta_value as parent,
				mo.meta_value as menu_order
			FROM wp_posts p
			INNER JOIN wp_term_relationships tr ON p.ID = tr.object_id
			INNER JOIN wp_term_taxonomy tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
			LEFT JOIN wp_postmeta pm ON p.ID = pm.post_id AND pm.meta_key = '_menu_item_menu_item_parent'
			LEFT JOIN wp_postmeta mo ON p.ID = mo.post_id AND mo.meta_key = '_menu_item_menu_order'
			WHERE tt.term_id = ?
			ORDER BY CAST(mo.meta_value AS UNSIGNED) ASC`, menu.ID)
		if err != nil {
			return nil, err
		}

		items := make([]models.MenuItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, models.MenuItem{
				ID:     row.ID,
				Title:  row.Title,
				Slug:   row.Slug,
				Type:   row.Type,
				Parent: int64(parseMetaInt(row.Parent)),
				Order:  parseMetaInt(row.Order),
			})
		}
		out[menu.Slug] = items
	}

	return out, nil
}

type optionRow struct {
	Name  string `db:"option_name"`
	Value string `db:"option_value"`
}

// SiteInfo retrieves the site identity options
func (r *Repository) SiteInfo(ctx context.Context) (*models.SiteInfo, error) {
	ctx, span := util.StartSpan(ctx, "Content.SiteInfo")
	defer span.End()

	var rows []optionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT option_name, option_value FROM wp_options
		WHERE option_name IN ('blogname', 'blogdescription', 'siteurl', 'home')`)
	if err != nil {
		return nil, err
	}

	options := make(map[string]string, len(rows))
	for _, row := range rows {
		options[row.Name] = row.Value
	}

	return &models.SiteInfo{
		Name:        options["blogname"],
		Description: options["blogdescription"],
		URL:         options["siteurl"],
		Home:        options["home"],
	}, nil
}

type productRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Description  string         `db:"description"`
	Status       string         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	Price        sql.NullString `db:"price"`
	RegularPrice sql.NullString `db:"regular_price"`
	SalePrice    sql.NullString `db:"sale_price"`
	SKU          sql.NullString `db:"sku"`
	Stock        sql.NullString `db:"stock"`
	StockStatus  sql.NullString `db:"stock_status"`
}

func (row productRow) toModel() models.ContentProduct {
	return models.ContentProduct{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt,
		Price:        parseMetaFloat(row.Price),
		RegularPrice: parseMetaFloat(row.RegularPrice),
		SalePrice:    parseMetaFloat(row.SalePrice),
		SKU:          row.SKU.String,
		Stock:        parseMetaInt(row.Stock),
		StockStatus:  row.StockStatus.String,
		Images:       []models.Image{},
	}
}

func parseMetaFloat(v sql.NullString) float64 {
	if !v.Valid {
		return 0
	}
	f, _ := strconv.ParseFloat(v.String, 64)
	return f
}

func parseMetaInt(v sql.NullString) int {
	if !v.Valid {
		return 0
	}
	n, _ := strconv.Atoi(v.String)
	return n
}

// productColumns pivots the product meta rows into columns
const productColumns = `
	p.ID as id,
	p.post_title as name,
	p.post_content as description,
	p.post_status as status,
	p.post_date as created_at,
	MAX(CASE WHEN m.meta_key = '_price' THEN m.meta_value END) as price,
	MAX(CASE WHEN m.meta_key = '_regular_price' THEN m.meta_value END) as regular_price,
	MAX(CASE WHEN m.meta_key = '_sale_price' THEN m.meta_value END) as sale_price,
	MAX(CASE WHEN m.meta_key = '_sku' THEN m.meta_value END) as sku,
	MAX(CASE WHEN m.meta_key = '_stock' THEN m.meta_value END) as stock,
	MAX(CASE WHEN m.meta_key = '_stock_status' THEN m.meta_value END) as stock_status`

// ListProducts retrieves all published products from the content
// database, newest first
func (r *Repository) ListProducts(ctx context.Context) ([]models.ContentProduct, error) {
	ctx, span := util.StartSpan(ctx, "Content.ListProducts")
	defer span.End()

	var rows []productRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT`+productColumns+`
		FROM wp_posts p
		LEFT JOIN wp_postmeta m ON p.ID = m.post_id
		WHERE p.post_type = 'product'
		  AND p.post_status = 'publish'
		GROUP BY p.ID
		ORDER BY p.post_date DESC`)
	if err != nil {
		return nil, err
	}

	out := make([]models.ContentProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// GetProductByID retrieves one product with its images and category names
func (r *Repository) GetProductByID(ctx context.Context, id int64) (*models.ContentProduct, error) {
	ctx, span := util.StartSpan(ctx, "Content.GetProductByID")
	defer span.End()

	var row productRow
	err := r.db.GetContext(ctx, &row, `
		SELECT`+productColumns+`
		FROM wp_posts p
		LEFT JOIN wp_postmeta m ON p.ID = m.post_id
		WHERE p.ID = ? AND p.post_type = 'product'
		GROUP BY p.ID`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	product := row.toModel()

	product.Images, err = r.attachedImages(ctx, id)
	if err != nil {
		return nil, err
	}

	cats, err := r.terms(ctx, id, "product_cat")
	if err != nil {
		return nil, err
	}
	for i, cat := range cats {
		if i > 0 {
			product.Category += ", "
		}
		product.Category += cat.Name
	}

	return &product, nil
}

// SearchProducts retrieves published products whose title or body
// matches the query
func (r *Repository) SearchProducts(ctx context.Context, query string) ([]models.ContentProduct, error) {
	ctx, span := util.StartSpan(ctx, "Content.SearchProducts")
	defer span.End()

	like := "%" + query + "%"

	var rows []productRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT`+productColumns+`
		FROM wp_posts p
		LEFT JOIN wp_postmeta m ON p.ID = m.post_id
		WHERE p.post_type = 'product'
		  AND p.post_status = 'publish'
		  AND (p.post_title LIKE ? OR p.post_content LIKE ?)
		GROUP BY p.ID
		ORDER BY p.post_date DESC`, like, like)
	if err != nil {
		return nil, err
	}

	out := make([]models.ContentProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
