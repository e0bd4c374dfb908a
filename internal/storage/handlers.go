package storage

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		kind := Kind(c.FormValue("kind"))
		if kind == "" {
			guessed, ok := KindOf(fh.Filename)
			if !ok {
				return fiber.NewError(fiber.StatusUnsupportedMediaType, ErrUnsupportedKind.Error())
			}
			kind = guessed
		}

		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()

		obj, err := svc.Save(c.Context(), userID, kind, fh.Filename, f)
		if errors.Is(err, ErrUnsupportedKind) {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}

// RegisterFiles serves stored uploads by name.
func RegisterFiles(r fiber.Router, svc *Service) {
	r.Get("/:name", func(c *fiber.Ctx) error {
		path, err := svc.Path(c.Params("name"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendFile(path)
	})
}
