package rowstore
