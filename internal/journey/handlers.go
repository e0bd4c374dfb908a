package journey

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"backend-journeylog/internal/gpx"
	"backend-journeylog/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// maxTrackBytes caps a GPX upload read into memory for parsing.
const maxTrackBytes = 20 << 20

type Uploader interface {
	Save(ctx context.Context, userID string, kind storage.Kind, filename string, r io.Reader) (storage.Object, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, uploads Uploader, authMiddleware fiber.Handler) {
	r.Get("/user/:userID", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := ownUser(c)
		if err != nil {
			return err
		}
		journeys, err := svc.List(c.Context(), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(journeys)
	})

	r.Post("/user/:userID/meteo/refresh", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := ownUser(c)
		if err != nil {
			return err
		}
		n, err := svc.RefreshUpcoming(c.Context(), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"refreshed": n})
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		j, err := svc.Get(c.Context(), currentUser(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(j)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := currentUser(c)
		p, files, err := parseJourneyBody(c)
		if err != nil {
			return err
		}
		j := New(p, svc.Now())
		if !j.IsNew() {
			if j, err = svc.Apply(c.Context(), userID, j.ID, p); err != nil {
				return httpError(err)
			}
		}
		for _, fh := range files {
			if j, err = attachFile(c.Context(), uploads, userID, j, fh); err != nil {
				return httpError(err)
			}
		}

		status := fiber.StatusOK
		if j.IsNew() {
			status = fiber.StatusCreated
		}
		saved, err := svc.Save(c.Context(), userID, j)
		if err != nil {
			return httpError(err)
		}
		return c.Status(status).JSON(saved)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		p, err := DecodePartial(c.Body())
		if err != nil || p == nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid journey payload")
		}
		userID := currentUser(c)
		j, err := svc.Apply(c.Context(), userID, c.Params("id"), p)
		if err != nil {
			return httpError(err)
		}
		updated, err := svc.Update(c.Context(), userID, j)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(updated)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), currentUser(c), c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/upload/image", authMiddleware, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()

		userID := currentUser(c)
		obj, err := uploads.Save(c.Context(), userID, storage.KindImage, fh.Filename, f)
		if err != nil {
			return httpError(err)
		}
		if _, err := svc.AddPicture(c.Context(), userID, c.Params("id"), obj.URL); err != nil {
			return httpError(err)
		}
		return c.JSON(obj.URL)
	})

	r.Post("/:id/upload/gpx", authMiddleware, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		data, track, err := readTrack(fh)
		if err != nil {
			return err
		}

		userID := currentUser(c)
		obj, err := uploads.Save(c.Context(), userID, storage.KindGPX, fh.Filename, bytes.NewReader(data))
		if err != nil {
			return httpError(err)
		}
		if _, err := svc.AttachTrack(c.Context(), userID, c.Params("id"), obj.URL, track); err != nil {
			return httpError(err)
		}
		return c.JSON(obj.URL)
	})

	r.Post("/:id/meteo/refresh", authMiddleware, func(c *fiber.Ctx) error {
		j, err := svc.RefreshMeteo(c.Context(), currentUser(c), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(j)
	})
}

// parseJourneyBody accepts a JSON journey or a multipart form carrying the
// journey as JSON in the "journey" field and attachments in "files".
func parseJourneyBody(c *fiber.Ctx) (Partial, []*multipart.FileHeader, error) {
	raw := c.Body()
	var files []*multipart.FileHeader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
		}
		values := form.Value["journey"]
		if len(values) == 0 {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "journey field required")
		}
		raw = []byte(values[0])
		files = form.File["files"]
	}

	p, err := DecodePartial(raw)
	if err != nil || p == nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "invalid journey payload")
	}
	return p, files, nil
}

func attachFile(ctx context.Context, uploads Uploader, userID string, j Journey, fh *multipart.FileHeader) (Journey, error) {
	kind, ok := storage.KindOf(fh.Filename)
	if !ok {
		return Journey{}, storage.ErrUnsupportedKind
	}
	if kind == storage.KindGPX {
		data, track, err := readTrack(fh)
		if err != nil {
			return Journey{}, err
		}
		obj, err := uploads.Save(ctx, userID, kind, fh.Filename, bytes.NewReader(data))
		if err != nil {
			return Journey{}, err
		}
		return WithTrack(j, obj.URL, track), nil
	}

	f, err := fh.Open()
	if err != nil {
		return Journey{}, err
	}
	defer f.Close()
	obj, err := uploads.Save(ctx, userID, kind, fh.Filename, f)
	if err != nil {
		return Journey{}, err
	}
	return j.AddPicture(obj.URL), nil
}

func readTrack(fh *multipart.FileHeader) ([]byte, gpx.Track, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, gpx.Track{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxTrackBytes))
	if err != nil {
		return nil, gpx.Track{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	track, err := gpx.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, gpx.Track{}, fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return data, track, nil
}

func currentUser(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// ownUser returns the :userID route parameter once checked against the
// authenticated user.
func ownUser(c *fiber.Ctx) (string, error) {
	userID := c.Params("userID")
	if userID == "" || userID != currentUser(c) {
		return "", fiber.NewError(fiber.StatusForbidden, "forbidden")
	}
	return userID, nil
}

func httpError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrMeteoNotDue):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrNoCoordinates):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrUnsupportedKind):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
