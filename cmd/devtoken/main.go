// devtoken 用本地 auth.jwt_secret 签发主机 Access Token，供联调使用
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/pkg/jwt"
)

func main() {
	hostID := flag.String("host", "", "主机 ID（UUID），为空时随机生成")
	cfgPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	id := *hostID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		fmt.Fprintf(os.Stderr, "主机 ID 必须为 UUID: %v\n", err)
		os.Exit(1)
	}

	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("host_id=%s\n%s\n", id, token)
}
