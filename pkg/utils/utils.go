package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// 生成随机 ID
func GenerateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// 生成连接客户端 ID
func GenerateClientID() string {
	return fmt.Sprintf("client_%s_%d", GenerateID()[:8], time.Now().Unix())
}
