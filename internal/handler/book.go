package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-lending/internal/model"
    "github.com/iliyamo/library-lending/internal/repository"
)

// BookHandler serves the catalogue: public browse plus librarian-only
// title management.
type BookHandler struct {
    Books *repository.BookRepo
}

func NewBookHandler(books *repository.BookRepo) *BookHandler {
    return &BookHandler{Books: books}
}

type createBookReq struct {
    Title       string  `json:"title"`
    Author      string  `json:"author"`
    ISBN        *string `json:"isbn"`
    TotalCopies uint32  `json:"total_copies"`
}

type bookResp struct {
    ID              uint64  `json:"id"`
    Title           string  `json:"title"`
    Author          string  `json:"author"`
    ISBN            *string `json:"isbn,omitempty"`
    TotalCopies     uint32  `json:"total_copies"`
    AvailableCopies uint32  `json:"available_copies"`
}

func toBookResp(b *model.Book) bookResp {
    return bookResp{
        ID:              b.ID,
        Title:           b.Title,
        Author:          b.Author,
        ISBN:            b.ISBN,
        TotalCopies:     b.TotalCopies,
        AvailableCopies: b.AvailableCopies,
    }
}

// Create adds a new title with all copies on the shelf.
// POST /v1/admin/books
func (h *BookHandler) Create(c echo.Context) error {
    var req createBookReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Title = strings.TrimSpace(req.Title)
    req.Author = strings.TrimSpace(req.Author)
    if req.Title == "" || req.Author == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/author required"})
    }
    if req.TotalCopies == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_copies must be positive"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b := &model.Book{
        Title:       req.Title,
        Author:      req.Author,
        ISBN:        req.ISBN,
        TotalCopies: req.TotalCopies,
    }
    if err := h.Books.Create(ctx, b); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create book failed"})
    }
    return c.JSON(http.StatusCreated, toBookResp(b))
}

// List browses the catalogue.  The optional ?q= term matches title or
// author.
// GET /v1/books
func (h *BookHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    books, err := h.Books.List(ctx, c.QueryParam("q"))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]bookResp, 0, len(books))
    for i := range books {
        out = append(out, toBookResp(&books[i]))
    }
    return c.JSON(http.StatusOK, out)
}

// Get returns one title with its live availability.
// GET /v1/books/:id
func (h *BookHandler) Get(c echo.Context) error {
    id, err := pathID(c)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Books.GetByID(ctx, id)
    if err != nil {
        if err == repository.ErrBookNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "book_not_found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, toBookResp(b))
}
