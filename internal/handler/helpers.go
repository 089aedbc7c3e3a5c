package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := c.Params(key)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, err
	}
	result := uint(parsed)
	return &result, nil
}

func parseFormUint(c *fiber.Ctx, key string) (*uint, error) {
	value := c.FormValue(key)
	if value == "" {
		return nil, errors.New("missing " + key)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
