package singleton

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePort 找一个当前可用的端口
func freePort(t *testing.T) string {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := listener.Addr().String()
	listener.Close()
	return port
}

func TestCheckAndLockPortAvailable(t *testing.T) {
	port := freePort(t)

	// 端口可用时拿到锁
	result, err := CheckAndLock(port)
	require.NoError(t, err)
	require.NotNil(t, result)
	defer result.Close()
}

func TestCheckAndLockPortHeldWithoutHealth(t *testing.T) {
	// 占用端口但不提供健康检查端点
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()
	port := listener.Addr().String()

	// 占用者不健康时视为可疑的残留实例
	result, err := CheckAndLock(port)
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "health check failed")
}

func TestCheckAndLockHealthyInstanceExits(t *testing.T) {
	// 启动一个带健康检查的进程替身
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	_, port, err := net.SplitHostPort(server.URL[7:])
	require.NoError(t, err)

	// 已有健康实例：nil listener + nil error，调用者应直接退出
	result, err := CheckAndLock(":" + port)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestIsAddrInUse(t *testing.T) {
	t.Run("address already bound", func(t *testing.T) {
		l1, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		defer l1.Close()

		_, err = net.Listen("tcp", l1.Addr().String())
		assert.True(t, isAddrInUse(err))
	})

	t.Run("unrelated listen error", func(t *testing.T) {
		_, err := net.Listen("tcp", "invalid")
		assert.False(t, isAddrInUse(err))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.False(t, isAddrInUse(nil))
	})
}

func TestIsInstanceRunning(t *testing.T) {
	t.Run("healthy instance", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				w.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		_, port, err := net.SplitHostPort(server.URL[7:])
		require.NoError(t, err)
		assert.True(t, isInstanceRunning(":"+port))
	})

	t.Run("nothing listening", func(t *testing.T) {
		assert.False(t, isInstanceRunning(freePort(t)))
	})

	t.Run("unhealthy status code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, port, err := net.SplitHostPort(server.URL[7:])
		require.NoError(t, err)
		assert.False(t, isInstanceRunning(":"+port))
	})
}
