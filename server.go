package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Time0 represents initial time when we start the server
var Time0 time.Time

func basePath(s string) string {
	if _config.Base != "" {
		if strings.HasPrefix(s, "/") {
			s = strings.Replace(s, "/", "", 1)
		}
		if strings.HasPrefix(_config.Base, "/") {
			return fmt.Sprintf("%s/%s", _config.Base, s)
		}
		return fmt.Sprintf("/%s/%s", _config.Base, s)
	}
	return s
}

func handlers() *mux.Router {
	router := mux.NewRouter()

	// visible routes
	router.HandleFunc(basePath("/upload"), UploadHandler).Methods("POST")
	router.HandleFunc(basePath("/delete"), DeleteHandler).Methods("DELETE")
	router.HandleFunc(basePath("/data"), DataHandler).Methods("GET")
	router.HandleFunc(basePath("/json"), PredictHandler).Methods("POST")
	router.HandleFunc(basePath("/image"), ImageHandler).Methods("POST")
	router.HandleFunc(basePath("/params"), ParamsHandler).Methods("GET", "POST")
	router.HandleFunc(basePath("/models"), ModelsHandler).Methods("GET")
	router.HandleFunc(basePath("/status"), StatusHandler).Methods("GET")
	router.HandleFunc(basePath("/"), DefaultHandler).Methods("GET")

	// log every request
	router.Use(loggingMiddleware)

	// use limiter middleware to slow down clients
	if _config.LimiterPeriod != "" {
		initLimiter(_config.LimiterPeriod)
		router.Use(limitMiddleware)
	}

	return router
}

// server starts labelimg HTTP server
func server() {
	Time0 = time.Now()

	// setup logging
	if _config.LogFile != "" {
		logName := _config.LogFile + "-%Y%m%d"
		hostname, err := os.Hostname()
		if err == nil {
			logName = _config.LogFile + "-" + hostname + "-%Y%m%d"
		}
		rl, err := rotatelogs.New(logName)
		if err == nil {
			rotlogs := rotateLogWriter{RotateLogs: rl}
			log.SetOutput(rotlogs)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	} else {
		// log time, filename, and line number
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cacheLimit := _config.CacheLimit
	if cacheLimit == 0 {
		cacheLimit = 10 // default number of models to keep in cache
	}
	_cache = TFCache{Models: make(map[string]TFCacheEntry), Limit: cacheLimit}

	if _config.ModelDir == "" {
		_config.ModelDir = "models"
	}
	if models, err := TFModels(); err == nil && len(models) > 0 {
		// use first known model as default params set
		_params = models[0]
		log.Println("default model parameters", _params.String())
	} else {
		log.Println("no models found in", _config.ModelDir)
	}

	http.Handle(basePath("/"), handlers())

	// start web server
	port := _config.Port
	if port == 0 {
		port = 8083
	}
	addr := fmt.Sprintf(":%d", port)
	_, e1 := os.Stat(_config.ServerCrt)
	_, e2 := os.Stat(_config.ServerKey)
	var err error
	if e1 == nil && e2 == nil {
		server := &http.Server{
			Addr: addr,
			TLSConfig: &tls.Config{
				ClientAuth: tls.RequestClientCert,
			},
		}
		log.Println("starting HTTPs server", addr)
		err = server.ListenAndServeTLS(_config.ServerCrt, _config.ServerKey)
	} else {
		log.Println("starting HTTP server", addr)
		err = http.ListenAndServe(addr, nil)
	}
	if err != nil {
		log.Fatal(err)
	}
}
