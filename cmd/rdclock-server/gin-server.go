package main

import (
	"net/http"
	"strconv"

	"github.com/aknopov/rdclock"
	"github.com/gin-gonic/gin"
)

type TicksResponse struct {
	Ticks uint64 `json:"ticks"`
}

type ConvertResponse struct {
	Ticks     uint64  `json:"ticks"`
	Micros    float64 `json:"us"`
	RoundedUs uint64  `json:"rounded_us"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newEngine(facility *rdclock.Facility) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery()) // no debug logging
	engine.Use(latencyLogger(facility))
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	engine.GET("/facility", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, facility.Snapshot()) })
	engine.GET("/ticks", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, TicksResponse{facility.Ticks()}) })
	engine.GET("/convert", func(ctx *gin.Context) { convert(ctx, facility) })
	engine.GET("/ticks-for", func(ctx *gin.Context) { ticksFor(ctx, facility) })

	return engine, nil
}

// Logs request handling time measured with the facility counter
func latencyLogger(facility *rdclock.Facility) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := facility.Ticks()
		ctx.Next()
		us, err := facility.Elapsed(start)
		if err != nil {
			return
		}
		logger.Debug().Str("path", ctx.Request.URL.Path).Int("status", ctx.Writer.Status()).Float64("us", us).Send()
	}
}

func convert(ctx *gin.Context, facility *rdclock.Facility) {
	ticks, err := strconv.ParseUint(ctx.Query("ticks"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{err.Error()})
		return
	}

	us, err := facility.TicksToMicroseconds(ticks)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{err.Error()})
		return
	}
	rounded, _ := facility.TicksToRoundedMicroseconds(ticks)

	ctx.JSON(http.StatusOK, ConvertResponse{ticks, us, rounded})
}

func ticksFor(ctx *gin.Context, facility *rdclock.Facility) {
	us, err := strconv.ParseFloat(ctx.Query("us"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{err.Error()})
		return
	}

	ticks, err := facility.MicrosecondsToTicks(us)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, TicksResponse{ticks})
}
